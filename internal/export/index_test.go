package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/designtree/internal/design"
)

func TestIndex_Claim(t *testing.T) {
	ix := NewIndex()
	assert.Equal(t, "Forms/A.form", ix.Claim("Forms/A.form", "10"))
	assert.Equal(t, "Forms/A.form", ix.Claim("Forms/A.form", "10"), "same owner keeps its path")
	assert.Equal(t, "Forms/A~11.form", ix.Claim("Forms/A.form", "11"))
	assert.Equal(t, "Forms/A~11.form", ix.Claim("Forms/A.form", "11"), "same owner keeps its renamed path")

	ix.Claim("Forms/B~13.form", "99")
	ix.Claim("Forms/B.form", "12")
	assert.Equal(t, "Forms/B~13-2.form", ix.Claim("Forms/B.form", "13"))

	ix.Claim("Resources/Files/noext", "12")
	assert.Equal(t, "Resources/Files/noext~13", ix.Claim("Resources/Files/noext", "13"))
}

func TestIndex_ClaimWithoutNoteID(t *testing.T) {
	ix := NewIndex()
	ix.Claim("Other/x.dxl", "1")
	p := ix.Claim("Other/x.dxl", "")
	assert.Equal(t, "Other/x~1.dxl", p)
	assert.Equal(t, "Other/x~2.dxl", ix.Claim("Other/x.dxl", ""), "records without ids never share a path")
}

func TestIndex_ClaimFoldsCase(t *testing.T) {
	ix := NewIndex()
	assert.Equal(t, "Forms/Main.form", ix.Claim("Forms/Main.form", "100"))
	assert.Equal(t, "Forms/main~101.form", ix.Claim("Forms/main.form", "101"))
	assert.Equal(t, "Forms/MAIN~102.FORM", ix.Claim("Forms/MAIN.FORM", "102"))

	ix.Claim("Resources/Files/Lib", "200")
	assert.Equal(t, "Resources/Files/lib~201/x.js", ix.Claim("Resources/Files/lib/x.js", "201"))
}

func TestIndex_ClaimFileUnderFile(t *testing.T) {
	ix := NewIndex()
	assert.Equal(t, "Resources/Files/lib", ix.Claim("Resources/Files/lib", "200"))
	assert.Equal(t, "Resources/Files/lib~201/x.js", ix.Claim("Resources/Files/lib/x.js", "201"))
	assert.Equal(t, "Resources/Files/lib~202/sub/y.js", ix.Claim("Resources/Files/lib/sub/y.js", "202"))
	assert.Equal(t, "Resources/Files/lib~201/z.js", ix.Claim("Resources/Files/lib/z.js", "201"))
}

func TestIndex_ClaimFileOverDirectory(t *testing.T) {
	ix := NewIndex()
	assert.Equal(t, "Resources/Files/lib/x.js", ix.Claim("Resources/Files/lib/x.js", "201"))
	assert.Equal(t, "Resources/Files/lib~200", ix.Claim("Resources/Files/lib", "200"))
	assert.Equal(t, "Resources/Files~300", ix.Claim("Resources/Files", "300"))
	assert.Equal(t, "Resources/Files/lib/y.js", ix.Claim("Resources/Files/lib/y.js", "202"))
}

func TestIndex_Counts(t *testing.T) {
	ix := NewIndex()
	ix.Seen()
	ix.Seen()
	ix.Seen()
	ix.Add(Entry{NoteID: "20fa", Kind: design.KindForm, Path: "Forms/b.form"})
	ix.Add(Entry{NoteID: "nothex", Kind: design.KindForm, Path: "Forms/a.form"})
	ix.Skip(true)

	assert.Equal(t, map[string]int{"form": 2}, ix.Counts())
	entries := ix.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Forms/a.form", entries[0].Path)

	bm := ix.Bitmap(design.KindForm)
	assert.Equal(t, uint64(1), bm.GetCardinality())
	assert.True(t, bm.Contains(0x20fa))
	bm.Add(1)
	assert.False(t, ix.Bitmap(design.KindForm).Contains(1), "Bitmap returns a copy")
	assert.True(t, ix.Bitmap(design.KindView).IsEmpty())

	assert.Equal(t, 3, ix.records)
	assert.Equal(t, 1, ix.unknown)
	assert.Equal(t, 1, ix.skipped)
}

func TestIndex_SQLite(t *testing.T) {
	ix := NewIndex()
	ix.Add(Entry{NoteID: "a1", Kind: design.KindView, Path: "Views/All.view", Format: design.EmbeddedDocument, Title: "All"})
	ix.Add(Entry{NoteID: "a2", Kind: design.KindImageResource, Path: "Resources/Images/x.gif", Format: design.RawFilePlusMetadata, Title: "x.gif"})

	dbPath := filepath.Join(t.TempDir(), "ix.db")
	require.NoError(t, ix.WriteSQLite(dbPath))

	views, err := KindEntries(dbPath, design.KindView)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{NoteID: "a1", Kind: design.KindView, Path: "Views/All.view", Format: design.EmbeddedDocument, Title: "All"}}, views)

	images, err := KindEntries(dbPath, design.KindImageResource)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, design.RawFilePlusMetadata, images[0].Format)

	bm, err := KindBitmap(dbPath, design.KindImageResource)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0xa2}, bm.ToArray())

	none, err := KindEntries(dbPath, design.KindForm)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNoteNumber(t *testing.T) {
	n, ok := noteNumber("0x20FA")
	assert.True(t, ok)
	assert.Equal(t, uint32(0x20fa), n)

	_, ok = noteNumber("123456789")
	assert.False(t, ok)
}

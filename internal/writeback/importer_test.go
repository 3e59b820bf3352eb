package writeback

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/designtree/internal/cdrecord"
	"github.com/agentic-research/designtree/internal/design"
	"github.com/agentic-research/designtree/internal/dxl"
	"github.com/agentic-research/designtree/internal/treefs"
)

func metadataDoc(t *testing.T, class, noteID, title, flags string) []byte {
	t.Helper()
	doc := dxl.NewDocument(class)
	doc.SetNoteID(noteID)
	doc.WriteTextItem(design.ItemTitle, title)
	doc.WriteTextItem(design.ItemFlags, flags)
	data, err := doc.Bytes()
	require.NoError(t, err)
	return data
}

func put(t *testing.T, fsys billy.Filesystem, name string, data []byte) {
	t.Helper()
	require.NoError(t, treefs.WriteFile(fsys, name, data))
}

func readDoc(t *testing.T, fsys billy.Filesystem, name string) *dxl.Document {
	t.Helper()
	data, err := treefs.ReadFile(fsys, name)
	require.NoError(t, err)
	doc, err := dxl.ReadDocument(bytes.NewReader(data))
	require.NoError(t, err)
	return doc
}

func runImport(t *testing.T, src billy.Filesystem, opts Options) (billy.Filesystem, *Result) {
	t.Helper()
	dst := memfs.New()
	res, err := NewImporter(src, dst, opts).Import(context.Background())
	require.NoError(t, err)
	return dst, res
}

func TestImport_RawFileWithMetadata(t *testing.T) {
	src := memfs.New()
	payload := bytes.Repeat([]byte("line of text\n"), 2000)
	put(t, src, "Resources/Files/notes.txt", payload)
	put(t, src, "Resources/Files/notes.txt.metadata", metadataDoc(t, "form", "0000012A", "notes.txt", "g"))

	dst, res := runImport(t, src, Options{})
	require.Len(t, res.Rebuilt, 1)
	rb := res.Rebuilt[0]
	assert.Equal(t, "Resources/Files/notes.txt", rb.Source)
	assert.Equal(t, "Resources/Files/notes.txt.dxl", rb.Output)
	assert.Equal(t, design.KindFileResource, rb.Kind)
	assert.Equal(t, "0000012A", rb.NoteID)
	assert.Empty(t, res.Skipped)

	doc := readDoc(t, dst, rb.Output)
	stream, err := doc.ReadRawItem(design.ItemFileData)
	require.NoError(t, err)
	want, err := cdrecord.EncodeBytes(payload, cdrecord.Attachment{Kind: cdrecord.GenericFile})
	require.NoError(t, err)
	assert.Equal(t, want, stream)

	dec, err := cdrecord.Decode(stream)
	require.NoError(t, err)
	assert.Equal(t, payload, dec.Data)

	size, err := doc.ItemNumbers(design.ItemFileSize)
	require.NoError(t, err)
	assert.Equal(t, []float64{float64(len(payload))}, size)
}

func TestImport_ScriptLibrary(t *testing.T) {
	src := memfs.New()
	code := []byte("function greet(name) { return \"héllo \" + name; }\n")
	put(t, src, "Code/ScriptLibraries/util.js", code)
	put(t, src, "Code/ScriptLibraries/util.js.metadata", metadataDoc(t, "filter", "00000200", "util", "sh"))

	dst, res := runImport(t, src, Options{ValidateScripts: true})
	require.Len(t, res.Rebuilt, 1)
	assert.Equal(t, design.KindScriptLibraryJS, res.Rebuilt[0].Kind)

	doc := readDoc(t, dst, "Code/ScriptLibraries/util.js.dxl")
	stream, err := doc.ReadRawItem(design.ItemJavaScriptLib)
	require.NoError(t, err)
	dec, err := cdrecord.Decode(stream)
	require.NoError(t, err)
	assert.Equal(t, cdrecord.ScriptBlob, dec.Kind)
	assert.Equal(t, code, dec.Data)
	assert.False(t, doc.HasItem(design.ItemFileSize))
}

func TestImport_ValidationFailureStopsImport(t *testing.T) {
	src := memfs.New()
	put(t, src, "Code/ScriptLibraries/bad.js", []byte("function ( {"))
	put(t, src, "Code/ScriptLibraries/bad.js.metadata", metadataDoc(t, "filter", "00000201", "bad", "sh"))

	_, err := NewImporter(src, memfs.New(), Options{ValidateScripts: true}).Import(context.Background())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Code/ScriptLibraries/bad.js", ve.FilePath)

	_, res := runImport(t, src, Options{})
	assert.Len(t, res.Rebuilt, 1)
}

func TestImport_XSPPropertiesSingleton(t *testing.T) {
	src := memfs.New()
	props := []byte("xsp.theme=oneui\n")
	put(t, src, "WebContent/WEB-INF/xsp.properties", props)

	dst, res := runImport(t, src, Options{})
	require.Len(t, res.Rebuilt, 1)
	assert.Equal(t, design.KindXSPProperties, res.Rebuilt[0].Kind)

	doc := readDoc(t, dst, "WebContent/WEB-INF/xsp.properties.dxl")
	assert.Equal(t, "form", doc.Class())
	assert.Equal(t, design.KindXSPProperties, design.Classify(RecordOf(doc)))

	stream, err := doc.ReadRawItem(design.ItemFileData)
	require.NoError(t, err)
	dec, err := cdrecord.Decode(stream)
	require.NoError(t, err)
	assert.Equal(t, props, dec.Data)
}

func TestImport_EmbeddedDocumentCopiedThrough(t *testing.T) {
	src := memfs.New()
	form := metadataDoc(t, "form", "00000100", "Main", "")
	put(t, src, "Forms/Main.form", form)
	other := metadataDoc(t, "0x2000", "00000101", "Odd", "")
	put(t, src, "Other/Odd.dxl", other)

	dst, res := runImport(t, src, Options{})
	require.Len(t, res.Rebuilt, 2)

	got, err := treefs.ReadFile(dst, "Forms/Main.form.dxl")
	require.NoError(t, err)
	assert.Equal(t, form, got)

	got, err = treefs.ReadFile(dst, "Other/Odd.dxl")
	require.NoError(t, err)
	assert.Equal(t, other, got)

	kinds := map[string]design.Kind{}
	for _, rb := range res.Rebuilt {
		kinds[rb.Output] = rb.Kind
	}
	assert.Equal(t, design.KindForm, kinds["Forms/Main.form.dxl"])
	assert.Equal(t, design.KindUnknown, kinds["Other/Odd.dxl"])
}

func TestImport_SkipsStrayFiles(t *testing.T) {
	src := memfs.New()
	put(t, src, "README.md", []byte("# not a document"))
	put(t, src, "Resources/Files/gone.txt.metadata", metadataDoc(t, "form", "00000300", "gone.txt", "g"))
	put(t, src, ".designtree.toml", []byte("records = 0\n"))

	dst, res := runImport(t, src, Options{})
	assert.Empty(t, res.Rebuilt)
	assert.ElementsMatch(t, []string{"README.md", "Resources/Files/gone.txt.metadata"}, res.Skipped)

	files, err := treefs.Files(dst)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestImport_MetadataForEmbeddedKindFails(t *testing.T) {
	src := memfs.New()
	put(t, src, "Forms/Main.form", []byte("raw"))
	put(t, src, "Forms/Main.form.metadata", metadataDoc(t, "form", "00000100", "Main", ""))

	_, err := NewImporter(src, memfs.New(), Options{}).Import(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no file content")
}

func TestImport_Cancelled(t *testing.T) {
	src := memfs.New()
	put(t, src, "Forms/Main.form", metadataDoc(t, "form", "00000100", "Main", ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewImporter(src, memfs.New(), Options{}).Import(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordOf_AssistType(t *testing.T) {
	doc := dxl.NewDocument("filter")
	doc.WriteTextItem(design.ItemTitle, "Cleanup|cleanup")
	doc.WriteNumberItem(design.ItemAssistType, float64(design.AssistTypeSimpleAction))

	r := RecordOf(doc)
	assert.Equal(t, design.ClassFilter, r.Class)
	require.NotNil(t, r.AssistType)
	assert.Equal(t, design.AssistTypeSimpleAction, *r.AssistType)
	assert.Equal(t, design.KindAgentSimpleAction, design.Classify(r))
}

package design

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/designtree/internal/cdrecord"
)

func intPtr(v int) *int { return &v }

func TestClassify_FormBranch(t *testing.T) {
	cases := []struct {
		flags, ext, title string
		want              Kind
	}{
		{"", "", "Main", KindForm},
		{"C", "", "Main", KindForm},
		{"U", "", "Header", KindSubform},
		{"W", "", "Home", KindPage},
		{"#W", "", "Frames", KindFrameset},
		{"y", "", "Shared", KindSharedActions},
		{"i", "", "logo.gif", KindImageResource},
		{"i", "", "$DBIcon", KindApplicationIcon},
		{"=", "", "site.css", KindStyleSheet},
		{"@", "", "clock", KindApplet},
		{"k", "", "conn", KindDataConnection},
		{"z", "", "db2", KindDB2AccessView},
		{"|", "", "app.ca", KindCompositeApp},
		{":", "", "comp", KindCompositeComponent},
		{"gK", "", "home.xsp", KindXPage},
		{"g;", "", "layout.xsp", KindCustomControl},
		{"g`", "", "oneui", KindTheme},
		{"g[", "", "com/acme/Foo.java", KindJavaFile},
		{"g,", "", "lib.jar", KindJavaJar},
		{"g_", "", "widgets", KindWidget},
		{"g", "", "readme.txt", KindFileResource},
		{"g", "w", "js/app.js", KindWebContentFile},
		{"g", "w", "WEB-INF/xsp.properties", KindXSPProperties},
		{"g", "", "WEB-INF/xsp.properties|alias", KindXSPProperties},
	}
	for _, tc := range cases {
		got := Classify(Record{Class: ClassForm, Flags: tc.flags, FlagsExt: tc.ext, Title: tc.title})
		assert.Equal(t, tc.want, got, "flags=%q ext=%q title=%q", tc.flags, tc.ext, tc.title)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	// Both "i" and "g" present: the image rule comes first.
	assert.Equal(t, KindImageResource, Classify(Record{Class: ClassForm, Flags: "gi"}))
	// XPage is checked before the generic file rule.
	assert.Equal(t, KindXPage, Classify(Record{Class: ClassForm, Flags: "Kg"}))
	// Web service flag beats the Java agent rule.
	assert.Equal(t, KindWebServiceProviderJava, Classify(Record{Class: ClassFilter, Flags: "J{"}))
}

func TestClassify_ViewBranch(t *testing.T) {
	assert.Equal(t, KindView, Classify(Record{Class: ClassView, Flags: "P"}))
	assert.Equal(t, KindFolder, Classify(Record{Class: ClassView, Flags: "F"}))
	assert.Equal(t, KindNavigator, Classify(Record{Class: ClassView, Flags: "G"}))
	assert.Equal(t, KindSharedColumn, Classify(Record{Class: ClassView, Flags: "^"}))
	assert.Equal(t, KindView, Classify(Record{Class: ClassView | ClassDefault, Flags: ""}))
}

func TestClassify_FilterBranch(t *testing.T) {
	hasSource := func(name string) bool { return name == ItemJavaSourceJar }

	cases := []struct {
		name string
		rec  Record
		want Kind
	}{
		{"outline", Record{Flags: "m"}, KindOutline},
		{"dbscript", Record{Flags: "t"}, KindDatabaseScript},
		{"ws ls", Record{Flags: "{"}, KindWebServiceProviderLS},
		{"ssjs", Record{Flags: "s."}, KindScriptLibraryServerJS},
		{"client js", Record{Flags: "sh"}, KindScriptLibraryJS},
		{"java lib", Record{Flags: "sj"}, KindScriptLibraryJava},
		{"ls lib", Record{Flags: "s"}, KindScriptLibraryLS},
		{"java agent", Record{Flags: "J", HasItem: hasSource}, KindAgentJava},
		{"imported java agent", Record{Flags: "J"}, KindAgentJavaImported},
		{"ls agent", Record{Flags: "L"}, KindAgentLotusScript},
		{"formula agent", Record{Flags: "", AssistType: intPtr(AssistTypeFormula)}, KindAgentFormula},
		{"simple action agent", Record{Flags: "f", AssistType: intPtr(AssistTypeSimpleAction)}, KindAgentSimpleAction},
		{"unknown assist", Record{AssistType: intPtr(7)}, KindUnknown},
		{"no assist", Record{}, KindUnknown},
	}
	for _, tc := range cases {
		tc.rec.Class = ClassFilter
		assert.Equal(t, tc.want, Classify(tc.rec), tc.name)
	}
}

func TestClassify_AgentDataOverride(t *testing.T) {
	for _, class := range []uint16{ClassFilter, ClassForm, ClassView, ClassDocument, 0} {
		assert.Equal(t, KindAgentData, Classify(Record{Class: class, Flags: "aX"}))
	}
}

func TestClassify_SingleRecordClasses(t *testing.T) {
	cases := map[uint16]Kind{
		ClassACL:         KindACL,
		ClassDesign:      KindDesignCollection,
		ClassIcon:        KindDatabaseProperties,
		ClassField:       KindSharedField,
		ClassHelp:        KindUsingDocument,
		ClassInfo:        KindAboutDocument,
		ClassHelpIndex:   KindHelpIndex,
		ClassReplFormula: KindReplicationFormula,
	}
	for class, want := range cases {
		assert.Equal(t, want, Classify(Record{Class: class}), ClassName(class))
		assert.Equal(t, want, Classify(Record{Class: class | ClassDefault}), ClassName(class))
	}
}

func TestClassify_UnknownIsTotal(t *testing.T) {
	for _, class := range []uint16{0, ClassDocument, 0x1000, 0x7fff} {
		assert.Equal(t, KindUnknown, Classify(Record{Class: class, Flags: "abc"}))
	}
}

func TestClassify_Deterministic(t *testing.T) {
	rec := Record{
		Class: ClassFilter, Flags: "J", Title: "Nightly",
		HasItem: func(name string) bool { return name == ItemJavaSourceJar },
	}
	first := Classify(rec)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(rec))
	}
}

func TestClassOf_RoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		if k == KindUnknown {
			assert.Equal(t, ClassDocument, ClassOf(k))
			continue
		}
		class := ClassOf(k)
		assert.NotEqual(t, ClassDocument, class, "%s", k)
	}
	assert.Equal(t, ClassForm, ClassOf(KindXPage))
	assert.Equal(t, ClassFilter, ClassOf(KindAgentSimpleAction))
	assert.Equal(t, ClassView, ClassOf(KindFolder))
}

func TestClassNames(t *testing.T) {
	for _, c := range classNames {
		got, err := ParseClass(ClassName(c.class))
		require.NoError(t, err)
		assert.Equal(t, c.class, got)
	}
	assert.Equal(t, "form", ClassName(ClassForm|ClassDefault))
	assert.Equal(t, "0x1000", ClassName(0x1000))

	v, err := ParseClass("0x1000")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1000), v)

	_, err = ParseClass("nonsense")
	assert.Error(t, err)
}

func TestKinds_LayoutsComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Kinds() {
		l := k.Layout()
		require.NotEmpty(t, l.Name, "kind %d has no layout", int(k))
		assert.False(t, seen[l.Name], "duplicate name %s", l.Name)
		seen[l.Name] = true
		assert.NotEmpty(t, l.Path, "%s", l.Name)

		if l.Format != EmbeddedDocument {
			assert.NotEmpty(t, l.AttachmentItem, "%s", l.Name)
			assert.NotZero(t, cdrecord.ItemCap(l.Attachment), "%s", l.Name)
		}

		back, err := ParseKind(l.Name)
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
	assert.Equal(t, "unknown", Kind(999).String())
	_, err := ParseKind("nope")
	assert.Error(t, err)
}

func TestScriptLibrariesUseScriptBlob(t *testing.T) {
	assert.Equal(t, cdrecord.ScriptBlob, KindScriptLibraryJS.Layout().Attachment)
	assert.Equal(t, ItemJavaScriptLib, KindScriptLibraryJS.Layout().AttachmentItem)
	assert.Equal(t, cdrecord.ScriptBlob, KindScriptLibraryServerJS.Layout().Attachment)
	assert.Equal(t, cdrecord.Image, KindImageResource.Layout().Attachment)
}

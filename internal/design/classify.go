package design

import (
	"fmt"
	"strings"

	"github.com/agentic-research/designtree/internal/flagpattern"
)

// Note class codes. ClassDefault marks the default instance of a class and
// is masked off before classification.
const (
	ClassDocument    uint16 = 0x0001
	ClassInfo        uint16 = 0x0002
	ClassForm        uint16 = 0x0004
	ClassView        uint16 = 0x0008
	ClassIcon        uint16 = 0x0010
	ClassDesign      uint16 = 0x0020
	ClassACL         uint16 = 0x0040
	ClassHelpIndex   uint16 = 0x0080
	ClassHelp        uint16 = 0x0100
	ClassFilter      uint16 = 0x0200
	ClassField       uint16 = 0x0400
	ClassReplFormula uint16 = 0x0800
	ClassDefault     uint16 = 0x8000
)

var classNames = []struct {
	class uint16
	name  string
}{
	{ClassDocument, "document"},
	{ClassInfo, "helpaboutdocument"},
	{ClassForm, "form"},
	{ClassView, "view"},
	{ClassIcon, "icon"},
	{ClassDesign, "designcollection"},
	{ClassACL, "acl"},
	{ClassHelpIndex, "helpindex"},
	{ClassHelp, "helpusingdocument"},
	{ClassFilter, "filter"},
	{ClassField, "field"},
	{ClassReplFormula, "replicationformula"},
}

// ClassName returns the interchange name of a note class, ignoring the
// default bit. Unnamed classes render as hex.
func ClassName(class uint16) string {
	class &^= ClassDefault
	for _, c := range classNames {
		if c.class == class {
			return c.name
		}
	}
	return fmt.Sprintf("0x%04x", class)
}

// ParseClass is the inverse of ClassName.
func ParseClass(name string) (uint16, error) {
	for _, c := range classNames {
		if c.name == name {
			return c.class, nil
		}
	}
	var v uint16
	if _, err := fmt.Sscanf(name, "0x%x", &v); err == nil {
		return v, nil
	}
	return 0, fmt.Errorf("unknown note class %q", name)
}

// Assist type discriminators for agents without a language flag.
const (
	AssistTypeFormula      = -1
	AssistTypeSimpleAction = 65413
)

// Flag characters consulted outside the pattern tables.
const (
	flagAgentData        = "X"
	flagExtWebContent    = "w"
	titleDatabaseIcon    = "$DBIcon"
	titleXSPPropertiesFn = "WEB-INF/xsp.properties"
)

// Record is the classifier input. HasItem may be nil when no items are
// known.
type Record struct {
	Class      uint16
	Flags      string
	FlagsExt   string
	Title      string
	HasItem    func(name string) bool
	AssistType *int
}

func (r Record) hasItem(name string) bool {
	return r.HasItem != nil && r.HasItem(name)
}

// primaryTitle is the title before any "|" alias.
func (r Record) primaryTitle() string {
	t, _, _ := strings.Cut(r.Title, "|")
	return strings.TrimSpace(t)
}

// rule maps a flag pattern to a kind. When resolve is set it refines the
// match using the rest of the record.
type rule struct {
	pattern flagpattern.Pattern
	kind    Kind
	resolve func(Record) Kind
}

func on(pattern string, kind Kind) rule {
	return rule{pattern: flagpattern.MustCompile(pattern), kind: kind}
}

func onResolve(pattern string, resolve func(Record) Kind) rule {
	return rule{pattern: flagpattern.MustCompile(pattern), resolve: resolve}
}

var formRules = []rule{
	on("+#", KindFrameset),
	on("+W", KindPage),
	on("+y", KindSharedActions),
	onResolve("+i", func(r Record) Kind {
		if r.primaryTitle() == titleDatabaseIcon {
			return KindApplicationIcon
		}
		return KindImageResource
	}),
	on("+=", KindStyleSheet),
	on("+@", KindApplet),
	on("+k", KindDataConnection),
	on("+z", KindDB2AccessView),
	on("+|", KindCompositeApp),
	on("+:", KindCompositeComponent),
	on("*gK", KindXPage),
	on("*g;", KindCustomControl),
	on("*g`", KindTheme),
	on("*g[", KindJavaFile),
	on("*g,", KindJavaJar),
	on("*g_", KindWidget),
	onResolve("+g", func(r Record) Kind {
		switch {
		case r.primaryTitle() == titleXSPPropertiesFn:
			return KindXSPProperties
		case strings.Contains(r.FlagsExt, flagExtWebContent):
			return KindWebContentFile
		}
		return KindFileResource
	}),
	on("+U", KindSubform),
	on("-U", KindForm),
}

var viewRules = []rule{
	on("+G", KindNavigator),
	on("+^", KindSharedColumn),
	on("+F", KindFolder),
	on("-G^F", KindView),
}

var filterRules = []rule{
	on("+m", KindOutline),
	on("+t", KindDatabaseScript),
	on("*{J", KindWebServiceProviderJava),
	on("+{", KindWebServiceProviderLS),
	on("*s.", KindScriptLibraryServerJS),
	on("*sh", KindScriptLibraryJS),
	on("*sj", KindScriptLibraryJava),
	on("+s", KindScriptLibraryLS),
	onResolve("+J", func(r Record) Kind {
		if r.hasItem(ItemJavaSourceJar) {
			return KindAgentJava
		}
		return KindAgentJavaImported
	}),
	on("+L", KindAgentLotusScript),
	onResolve("-", func(r Record) Kind {
		if r.AssistType == nil {
			return KindUnknown
		}
		switch *r.AssistType {
		case AssistTypeFormula:
			return KindAgentFormula
		case AssistTypeSimpleAction:
			return KindAgentSimpleAction
		}
		return KindUnknown
	}),
}

func scan(rules []rule, r Record) Kind {
	for _, ru := range rules {
		if !ru.pattern.Match(r.Flags) {
			continue
		}
		if ru.resolve != nil {
			return ru.resolve(r)
		}
		return ru.kind
	}
	return KindUnknown
}

// Classify resolves the kind of a design record. It never fails: records
// that fit no rule are KindUnknown.
func Classify(r Record) Kind {
	if strings.Contains(r.Flags, flagAgentData) {
		return KindAgentData
	}
	switch r.Class &^ ClassDefault {
	case ClassACL:
		return KindACL
	case ClassDesign:
		return KindDesignCollection
	case ClassIcon:
		return KindDatabaseProperties
	case ClassField:
		return KindSharedField
	case ClassHelp:
		return KindUsingDocument
	case ClassInfo:
		return KindAboutDocument
	case ClassHelpIndex:
		return KindHelpIndex
	case ClassReplFormula:
		return KindReplicationFormula
	case ClassView:
		return scan(viewRules, r)
	case ClassFilter:
		return scan(filterRules, r)
	case ClassForm:
		return scan(formRules, r)
	}
	return KindUnknown
}

// ClassOf returns the note class a kind is stored under.
func ClassOf(k Kind) uint16 {
	switch {
	case k >= KindForm && k <= KindXSPProperties:
		return ClassForm
	case k >= KindView && k <= KindSharedColumn:
		return ClassView
	case k >= KindOutline && k <= KindAgentData:
		return ClassFilter
	}
	switch k {
	case KindACL:
		return ClassACL
	case KindDesignCollection:
		return ClassDesign
	case KindDatabaseProperties:
		return ClassIcon
	case KindSharedField:
		return ClassField
	case KindUsingDocument:
		return ClassHelp
	case KindAboutDocument:
		return ClassInfo
	case KindHelpIndex:
		return ClassHelpIndex
	case KindReplicationFormula:
		return ClassReplFormula
	}
	return ClassDocument
}

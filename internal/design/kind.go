// Package design classifies design records into semantic kinds and maps
// each kind onto the on-disk layout used by export and import.
package design

import (
	"fmt"
	"regexp"

	"github.com/agentic-research/designtree/internal/cdrecord"
)

// Kind is the semantic classification of a design record.
type Kind int

const (
	KindUnknown Kind = iota

	// Form class
	KindForm
	KindSubform
	KindPage
	KindFrameset
	KindSharedActions
	KindImageResource
	KindApplicationIcon
	KindStyleSheet
	KindApplet
	KindDataConnection
	KindDB2AccessView
	KindCompositeApp
	KindCompositeComponent
	KindXPage
	KindCustomControl
	KindTheme
	KindJavaFile
	KindJavaJar
	KindWidget
	KindFileResource
	KindWebContentFile
	KindXSPProperties

	// View class
	KindView
	KindFolder
	KindNavigator
	KindSharedColumn

	// Filter class
	KindOutline
	KindDatabaseScript
	KindWebServiceProviderJava
	KindWebServiceProviderLS
	KindScriptLibraryServerJS
	KindScriptLibraryJS
	KindScriptLibraryJava
	KindScriptLibraryLS
	KindAgentJava
	KindAgentJavaImported
	KindAgentLotusScript
	KindAgentFormula
	KindAgentSimpleAction
	KindAgentData

	// Single-record classes
	KindACL
	KindDesignCollection
	KindDatabaseProperties
	KindSharedField
	KindUsingDocument
	KindAboutDocument
	KindHelpIndex
	KindReplicationFormula

	kindCount
)

// Format is how a kind is written to disk.
type Format int

const (
	// EmbeddedDocument writes the whole interchange document as the file.
	EmbeddedDocument Format = iota
	// RawFilePlusMetadata writes the attachment payload as the file and the
	// remaining items to a sibling ".metadata" document.
	RawFilePlusMetadata
	// RawFileOnly writes only the attachment payload.
	RawFileOnly
)

func (f Format) String() string {
	switch f {
	case EmbeddedDocument:
		return "embedded"
	case RawFilePlusMetadata:
		return "raw+metadata"
	case RawFileOnly:
		return "raw"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Layout is the static on-disk description of a kind.
type Layout struct {
	Name      string
	Path      string
	Extension string
	// Singleton kinds have exactly one record; Path is then the file path.
	Singleton bool
	Format    Format
	// AttachmentItem names the raw item carrying the packaged attachment
	// for raw formats.
	AttachmentItem string
	Attachment     cdrecord.Kind
	// IgnoredItems matches item names dropped from exported documents.
	IgnoredItems *regexp.Regexp
}

// Item names read or written by export and import.
const (
	ItemFileData      = "$FileData"
	ItemImageData     = "$ImageData"
	ItemJavaScriptLib = "$JavaScriptLibrary"
	ItemServerJSLib   = "$ServerJavaScriptLibrary"
	ItemTitle         = "$TITLE"
	ItemFlags         = "$Flags"
	ItemFlagsExt      = "$FlagsExt"
	ItemAssistType    = "$AssistType"
	ItemJavaSourceJar = "%%source%%.jar"
	ItemFileNames     = "$FileNames"
	ItemMimeType      = "$MimeType"
	ItemFileSize      = "$FileSize"
	ItemImageNames    = "$ImageNames"
)

var (
	volatileItems = regexp.MustCompile(`^\$(Revisions|UpdatedBy|FileModDT|FileSize)$`)
	compiledItems = regexp.MustCompile(`^\$(Revisions|UpdatedBy|FileModDT|FileSize|ClassIndexItem|ClassData\d*|ClassSize\d*)$`)
)

func embedded(name, dir, ext string) Layout {
	return Layout{Name: name, Path: dir, Extension: ext, Format: EmbeddedDocument, IgnoredItems: volatileItems}
}

func single(name, file string) Layout {
	return Layout{Name: name, Path: file, Singleton: true, Format: EmbeddedDocument, IgnoredItems: volatileItems}
}

func rawFile(name, dir, ext string) Layout {
	return Layout{
		Name: name, Path: dir, Extension: ext, Format: RawFilePlusMetadata,
		AttachmentItem: ItemFileData, Attachment: cdrecord.GenericFile, IgnoredItems: volatileItems,
	}
}

// compiled file resources also carry generated class items.
func compiled(name, dir, ext string) Layout {
	l := rawFile(name, dir, ext)
	l.IgnoredItems = compiledItems
	return l
}

func image(name, dir string) Layout {
	return Layout{
		Name: name, Path: dir, Format: RawFilePlusMetadata,
		AttachmentItem: ItemImageData, Attachment: cdrecord.Image, IgnoredItems: volatileItems,
	}
}

func script(name, dir, ext, item string) Layout {
	return Layout{
		Name: name, Path: dir, Extension: ext, Format: RawFilePlusMetadata,
		AttachmentItem: item, Attachment: cdrecord.ScriptBlob, IgnoredItems: volatileItems,
	}
}

var layouts = [kindCount]Layout{
	KindUnknown: embedded("unknown", "Other", ".dxl"),

	KindForm:               embedded("form", "Forms", ".form"),
	KindSubform:            embedded("subform", "SharedElements/Subforms", ".subform"),
	KindPage:               embedded("page", "Pages", ".page"),
	KindFrameset:           embedded("frameset", "Framesets", ".frameset"),
	KindSharedActions:      single("sharedactions", "Code/actions/Shared Actions"),
	KindImageResource:      image("image", "Resources/Images"),
	KindApplicationIcon:    single("appicon", "AppProperties/$DBIcon"),
	KindStyleSheet:         rawFile("stylesheet", "Resources/StyleSheets", ""),
	KindApplet:             embedded("applet", "Resources/Applets", ".applet"),
	KindDataConnection:     embedded("dataconnection", "Data/DataConnections", ".dcr"),
	KindDB2AccessView:      embedded("db2accessview", "Data/DB2AccessViews", ".db2v"),
	KindCompositeApp:       rawFile("compositeapp", "CompositeApplications/Applications", ""),
	KindCompositeComponent: rawFile("compositecomponent", "CompositeApplications/Components", ""),
	KindXPage:              compiled("xpage", "XPages", ".xsp"),
	KindCustomControl:      compiled("customcontrol", "CustomControls", ".xsp"),
	KindTheme:              rawFile("theme", "Resources/Themes", ".theme"),
	KindJavaFile:           compiled("javafile", "Code/Java", ""),
	KindJavaJar:            rawFile("javajar", "Code/Jars", ""),
	KindWidget:             rawFile("widget", "Resources/Widgets", ""),
	KindFileResource:       rawFile("file", "Resources/Files", ""),
	KindWebContentFile:     rawFile("webcontent", "WebContent", ""),
	KindXSPProperties: {
		Name: "xspproperties", Path: "WebContent/WEB-INF/xsp.properties", Singleton: true, Format: RawFileOnly,
		AttachmentItem: ItemFileData, Attachment: cdrecord.GenericFile, IgnoredItems: volatileItems,
	},

	KindView:         embedded("view", "Views", ".view"),
	KindFolder:       embedded("folder", "Folders", ".folder"),
	KindNavigator:    embedded("navigator", "SharedElements/Navigators", ".navigator"),
	KindSharedColumn: embedded("sharedcolumn", "SharedElements/Columns", ".column"),

	KindOutline:                embedded("outline", "SharedElements/Outlines", ".outline"),
	KindDatabaseScript:         single("dbscript", "Code/dbscript.lsdb"),
	KindWebServiceProviderJava: embedded("wsprovider-java", "Code/WebServices", ".jws"),
	KindWebServiceProviderLS:   embedded("wsprovider-ls", "Code/WebServices", ".lws"),
	KindScriptLibraryServerJS:  script("scriptlib-ssjs", "Code/ScriptLibraries", ".jss", ItemServerJSLib),
	KindScriptLibraryJS:        script("scriptlib-js", "Code/ScriptLibraries", ".js", ItemJavaScriptLib),
	KindScriptLibraryJava:      embedded("scriptlib-java", "Code/ScriptLibraries", ".javalib"),
	KindScriptLibraryLS:        embedded("scriptlib-ls", "Code/ScriptLibraries", ".lss"),
	KindAgentJava:              embedded("agent-java", "Code/Agents", ".ja"),
	KindAgentJavaImported:      embedded("agent-java-imported", "Code/Agents", ".ija"),
	KindAgentLotusScript:       embedded("agent-ls", "Code/Agents", ".lsa"),
	KindAgentFormula:           embedded("agent-formula", "Code/Agents", ".fa"),
	KindAgentSimpleAction:      embedded("agent-simple", "Code/Agents", ".aa"),
	KindAgentData:              embedded("agentdata", "Code/Agents", ".adata"),

	KindACL:                single("acl", "AppProperties/database.acl"),
	KindDesignCollection:   single("designcollection", "AppProperties/database.designcollection"),
	KindDatabaseProperties: single("dbproperties", "AppProperties/database.properties"),
	KindSharedField:        embedded("sharedfield", "SharedElements/Fields", ".field"),
	KindUsingDocument:      single("using", "Resources/UsingDocument"),
	KindAboutDocument:      single("about", "Resources/AboutDocument"),
	KindHelpIndex:          single("helpindex", "Resources/HelpIndex"),
	KindReplicationFormula: single("replformula", "AppProperties/replication.formula"),
}

// Layout returns the static layout of k. Out-of-range kinds get the
// KindUnknown layout.
func (k Kind) Layout() Layout {
	if k < 0 || k >= kindCount {
		return layouts[KindUnknown]
	}
	return layouts[k]
}

func (k Kind) String() string {
	return k.Layout().Name
}

// Kinds returns every kind, KindUnknown first.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := KindUnknown; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind looks a kind up by its name.
func ParseKind(name string) (Kind, error) {
	for k := KindUnknown; k < kindCount; k++ {
		if layouts[k].Name == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown design kind %q", name)
}

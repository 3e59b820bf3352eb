package writeback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidJS(t *testing.T) {
	src := []byte(`function hello() { return "world"; }`)
	assert.NoError(t, Validate(src, "Code/ScriptLibraries/util.js"))
}

func TestValidate_BrokenJS(t *testing.T) {
	src := []byte(`function hello() {
  return "world";
`)
	err := Validate(src, "util.js")
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "util.js", ve.FilePath)
	assert.Contains(t, ve.Error(), "util.js:")
}

func TestValidate_ServerJSUsesJavaScriptGrammar(t *testing.T) {
	assert.NoError(t, Validate([]byte(`var db = session.getCurrentDatabase();`), "lib.jss"))
	assert.Error(t, Validate([]byte(`var db = (session.getCurrentDatabase();`), "lib.jss"))
}

func TestValidate_ValidJava(t *testing.T) {
	src := []byte(`package demo;

public class Hello {
    public String hello() { return "world"; }
}
`)
	assert.NoError(t, Validate(src, "Code/Java/demo/Hello.java"))
}

func TestValidate_BrokenJava(t *testing.T) {
	src := []byte(`public class Hello {
    public String hello() { return "world" }
`)
	err := Validate(src, "Hello.java")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Hello.java", ve.FilePath)
}

func TestValidate_ExtensionIsCaseInsensitive(t *testing.T) {
	assert.True(t, Validatable("LIB.JS"))
	assert.Error(t, Validate([]byte(`function (`), "LIB.JS"))
}

func TestValidate_UnknownExtension_PassThrough(t *testing.T) {
	src := []byte(`this is not valid code in any language {{{`)
	assert.NoError(t, Validate(src, "Resources/Files/readme.txt"))
	assert.NoError(t, Validate(src, "Code/ScriptLibraries/legacy.lss"))
}

func TestValidate_EmptyContent(t *testing.T) {
	assert.NoError(t, Validate([]byte{}, "empty.js"))
}

func TestValidatable(t *testing.T) {
	for path, want := range map[string]bool{
		"a.js":        true,
		"a.jss":       true,
		"a.java":      true,
		"a.lss":       false,
		"a.form":      false,
		"a":           false,
		"dir.js/file": false,
	} {
		assert.Equal(t, want, Validatable(path), path)
	}
}

func TestASTErrors_BrokenJS(t *testing.T) {
	src := []byte(`function a() { var x = ; }
function b() { return ) }
`)
	errs := ASTErrors(src, "broken.js")
	require.NotEmpty(t, errs)
	for _, e := range errs {
		assert.Equal(t, "broken.js", e.FilePath)
	}
}

func TestASTErrors_ValidJS_ReturnsNil(t *testing.T) {
	assert.Nil(t, ASTErrors([]byte(`const x = 1;`), "ok.js"))
}

func TestASTErrors_UnknownExtension_ReturnsNil(t *testing.T) {
	assert.Nil(t, ASTErrors([]byte(`broken {{{`), "test.txt"))
}

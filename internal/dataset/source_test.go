package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"src_main_java_com_fasterxml_jackson_databind_util_StdDateFormat.java", "com/fasterxml/jackson/databind/util/StdDateFormat.java", true},
		{"src_java_org_apache_commons_cli_OptionBuilder.java", "org/apache/commons/cli/OptionBuilder.java", true},
		{"SettingsException.java", "", false},
		{"src_main_java_.java", "", false},
		{"src_main_java_Foo.class", "", false},
	}

	for _, tt := range tests {
		got, ok := Decode(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestNewSourceFile(t *testing.T) {
	tests := []struct {
		rel, stem, pkgPath string
	}{
		{"ServerBuilder.java", "ServerBuilder", "ServerBuilder.java"},
		{"src_main_java_com_fasterxml_jackson_databind_DatabindContext.java", "DatabindContext", "com/fasterxml/jackson/databind/DatabindContext.java"},
		{"src/main/java/org/acme/Foo.java", "Foo", "org/acme/Foo.java"},
		{"module-a/src/main/java/org/acme/Foo.java", "Foo", "org/acme/Foo.java"},
		{"org/acme/Foo.java", "Foo", "org/acme/Foo.java"},
	}

	for _, tt := range tests {
		sf := NewSourceFile("/data/"+tt.rel, tt.rel)
		assert.Equal(t, tt.stem, sf.Stem, tt.rel)
		assert.Equal(t, tt.pkgPath, sf.PackagePath, tt.rel)
		assert.Equal(t, tt.stem+".java", sf.Name, tt.rel)
	}
}

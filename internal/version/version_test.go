// ABOUTME: Tests for version constants
// ABOUTME: Ensures version information is defined and formatted
package version

import (
	"strings"
	"testing"
)

func TestConstantsDefined(t *testing.T) {
	placeholders := []string{"TODO", "FIXME", "XXX", "placeholder"}

	for name, value := range map[string]string{
		"Version":      Version,
		"Product":      Product,
		"Manufacturer": Manufacturer,
	} {
		if value == "" || len(value) > 100 {
			t.Errorf("%s has unreasonable value %q", name, value)
		}
		for _, p := range placeholders {
			if value == p {
				t.Errorf("%s is a placeholder: %s", name, p)
			}
		}
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, Product+" ") || !strings.HasSuffix(s, Version) {
		t.Errorf("String() = %q", s)
	}
}

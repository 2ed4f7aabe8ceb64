package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	b := Get()
	switch {
	case b.Version == "":
		t.Error("version should not be empty")
	case b.Commit == "":
		t.Error("commit should not be empty")
	case b.Date == "":
		t.Error("date should not be empty")
	default:
		t.Log("build: ", b)
	}
}

func TestBuildString(t *testing.T) {
	s := Get().String()

	switch {
	case !strings.Contains(s, "version="):
		t.Error("String should contain 'version='")
	case !strings.Contains(s, "commit="):
		t.Error("String should contain 'commit='")
	case !strings.Contains(s, "date="):
		t.Error("String should contain 'date='")
	default:
		t.Log("string: ", s)
	}
}

package watcher

import "testing"

func TestIgnorePatterns_Match(t *testing.T) {
	ip := NewIgnorePatterns()
	for _, p := range []string{
		"# comment",
		"",
		"*.log",
		"!keep.log",
		"build/",
		"docs/*.md",
		"**/testdata/**",
	} {
		ip.AddPattern(p)
	}

	if got := ip.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"/src/app.log", false, true},
		{"/src/logs/keep.log", false, false},
		{"/src/main.go", false, false},
		{"/src/build", true, true},
		{"/src/build", false, false},
		{"/src/build/out.o", false, true},
		{"/src/docs/readme.md", false, true},
		{"/src/docs/sub/readme.md", false, false},
		{"/src/pkg/testdata/in.txt", false, true},
		{"/src/pkg/testdata", true, false},
		{"relative/app.log", false, true},
	}

	for _, tt := range tests {
		if got := ip.Match(tt.path, tt.isDir); got != tt.want {
			t.Errorf("Match(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestIgnorePatterns_Empty(t *testing.T) {
	ip := NewIgnorePatterns()
	if ip.Match("/anything", false) {
		t.Error("empty matcher should not ignore anything")
	}
}

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpCreate | OpWrite, "CREATE|WRITE"},
		{OpRemove | OpRename | OpChmod, "REMOVE|RENAME|CHMOD"},
		{0, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

package decrypt

import "testing"

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"data/a_gmail_com_note.pdf", "data/a_gmail_com_note_decrypted.pdf"},
		{"note.pdf", "note_decrypted.pdf"},
	}

	for _, tt := range tests {
		if got := OutputPath(tt.in); got != tt.want {
			t.Errorf("OutputPath(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs("in.pdf", "out.pdf", "secret")

	want := []string{"--password=secret", "--decrypt", "in.pdf", "out.pdf"}
	if len(args) != len(want) {
		t.Fatalf("expected %d args, got %d", len(want), len(args))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], args[i])
		}
	}
}

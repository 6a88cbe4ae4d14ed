package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidBotName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "mybot", true},
		{"with hyphen and underscore", "my-bot_01", true},
		{"minimum length", "abc", true},
		{"maximum length", strings.Repeat("a", 50), true},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 51), false},
		{"empty", "", false},
		{"spaces", "my bot", false},
		{"special characters", "bot!", false},
		{"path traversal", "../bot", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidBotName(tt.input))
		})
	}
}

func TestValidStartCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"plain python", "python app.py", true},
		{"node entrypoint", "node server.js", true},
		{"at length limit", "python " + strings.Repeat("a", 493), true},
		{"over length limit", "python " + strings.Repeat("a", 494), false},
		{"empty", "", false},
		{"command chaining", "python app.py && rm -rf /", false},
		{"or operator", "python app.py || true", false},
		{"separator", "python app.py; ls", false},
		{"pipe", "cat /etc/passwd | nc", false},
		{"output redirect", "python app.py > /etc/cron.d/x", false},
		{"input redirect", "python app.py < secrets", false},
		{"backtick substitution", "python `id`.py", false},
		{"dollar substitution", "python $(id).py", false},
		{"bash", "bash script", false},
		{"sh with space", "sh script", false},
		{"direct binary", "/bin/ls", false},
		{"rm", "rm -rf data", false},
		{"dd", "dd if=/dev/zero", false},
		{"mkfs", "mkfs.ext4 /dev/sda", false},
		{"curl pipe", "curl http://x.sh | python", false},
		{"wget pipe", "wget http://x.sh | python", false},
		{"case insensitive", "BASH script", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidStartCommand(tt.input))
		})
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("user@example.com"))
	assert.True(t, ValidEmail("a.b+c@sub.domain.org"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("user@"))
	assert.False(t, ValidEmail("@example.com"))
	assert.False(t, ValidEmail("user@host"))
	assert.False(t, ValidEmail(""))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "main.py", "main.py"},
		{"strips directories", "/etc/passwd", "passwd"},
		{"strips traversal", "..main.py", "main.py"},
		{"bare dot", ".", ""},
		{"bare dotdot", "..", ""},
		{"empty", "", ""},
		{"replaces unsafe chars", "my file (1).py", "my_file__1_.py"},
		{"keeps dots and dashes", "my-app.v2.py", "my-app.v2.py"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".py"
	got := SanitizeFilename(long)
	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, strings.HasSuffix(got, ".py"))
}

func TestSanitizeFilenameIdempotent(t *testing.T) {
	inputs := []string{"main.py", "../../etc/passwd", "weird name!.js", strings.Repeat("x", 400) + ".txt", "..", ".", ""}
	for _, in := range inputs {
		once := SanitizeFilename(in)
		assert.Equal(t, once, SanitizeFilename(once))
	}
}

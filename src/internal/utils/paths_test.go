package utils

import "testing"

func TestGetAbsolutePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		baseDir string
		want    string
	}{
		{"absolute path is kept", "/etc/ws02/sql.properties", "/opt/ws02", "/etc/ws02/sql.properties"},
		{"relative path joins config dir", "sql.properties", "/etc/ws02", "/etc/ws02/sql.properties"},
		{"dot path", "./keys/id_rsa", "/etc/ws02", "/etc/ws02/keys/id_rsa"},
		{"parent path is cleaned", "../shared/known_hosts", "/etc/ws02/conf", "/etc/ws02/shared/known_hosts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetAbsolutePath(tt.path, tt.baseDir); got != tt.want {
				t.Errorf("GetAbsolutePath(%q, %q) = %s, want %s", tt.path, tt.baseDir, got, tt.want)
			}
		})
	}
}

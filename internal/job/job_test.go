package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/watcherd/internal/errors"
	"github.com/listenupapp/watcherd/internal/watcher"
)

func boolPtr(b bool) *bool { return &b }

func TestNew(t *testing.T) {
	j, err := New("photos", Config{
		Watch:     "/srv/photos/",
		Events:    List{"create", "move_to", "bogus"},
		Recursive: true,
		Exclude:   List{"*.tmp"},
		Command:   "thumb ${full-path}",
		Rate:      2,
	})
	require.NoError(t, err)

	assert.Equal(t, "photos", j.Name)
	assert.Equal(t, "/srv/photos", j.Root)
	assert.Equal(t, watcher.Create|watcher.MoveTo, j.Mask)
	assert.True(t, j.Recursive)
	assert.True(t, j.Shell, "shell defaults to true")
	assert.False(t, j.Wait)
	assert.Equal(t, 2.0, j.Rate)
	assert.True(t, j.Exclude.Excluded("a/b.tmp"))
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing command",
			cfg:     Config{Watch: "/srv", Events: List{"create"}},
			wantErr: errors.ErrValidation,
		},
		{
			name:    "negative rate",
			cfg:     Config{Watch: "/srv", Events: List{"create"}, Command: "true", Rate: -1},
			wantErr: errors.ErrValidation,
		},
		{
			name:    "relative watch path",
			cfg:     Config{Watch: "srv", Events: List{"create"}, Command: "true"},
			wantErr: errors.ErrConfig,
		},
		{
			name:    "no known events",
			cfg:     Config{Watch: "/srv", Events: List{"created", "deleted"}, Command: "true"},
			wantErr: errors.ErrConfig,
		},
		{
			name:    "bad exclude pattern",
			cfg:     Config{Watch: "/srv", Events: List{"create"}, Command: "true", Exclude: List{"re:("}},
			wantErr: errors.ErrConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("j", tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	j, err := New("j", Config{Watch: "~/inbox", Events: List{"create"}, Command: "true", Shell: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "inbox"), j.Root)
	assert.False(t, j.Shell)
}

func TestJob_NativeMask(t *testing.T) {
	tests := []struct {
		name      string
		mask      watcher.Mask
		recursive bool
		want      watcher.Mask
	}{
		{
			name: "flat job uses its mask",
			mask: watcher.WriteClose,
			want: watcher.WriteClose,
		},
		{
			name:      "recursive job tracks directory creation and renames",
			mask:      watcher.WriteClose,
			recursive: true,
			want:      watcher.WriteClose | watcher.Create | watcher.MoveTo | watcher.MoveFrom,
		},
		{
			name:      "recursive create-only job still sees directories move out",
			mask:      watcher.Create,
			recursive: true,
			want:      watcher.Create | watcher.MoveTo | watcher.MoveFrom,
		},
		{
			name: "move_to needs move_from for correlation",
			mask: watcher.MoveTo,
			want: watcher.MoveTo | watcher.MoveFrom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &Job{Mask: tt.mask, Recursive: tt.recursive}
			assert.Equal(t, tt.want, j.NativeMask())
		})
	}
}

func TestJob_Wants(t *testing.T) {
	j := &Job{Mask: watcher.Create}

	assert.True(t, j.Wants(watcher.Create))
	assert.True(t, j.Wants(watcher.Create|watcher.IsDir))
	assert.False(t, j.Wants(watcher.MoveTo|watcher.IsDir))
	assert.False(t, j.Wants(watcher.IsDir))
}

package buildtree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_Mirror(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, ".build")

	tree, err := New(base, root)
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "file in base",
			path: filepath.Join(base, "main.cpp"),
			want: filepath.Join(root, "main.cpp"),
		},
		{
			name: "nested file",
			path: filepath.Join(base, "src", "lib", "a.hpp"),
			want: filepath.Join(root, "src", "lib", "a.hpp"),
		},
		{
			name: "unclean path",
			path: filepath.Join(base, "src", "..", "b.cpp"),
			want: filepath.Join(root, "b.cpp"),
		},
		{
			name: "outside base",
			path: "/usr/include/foo.h",
			want: filepath.Join(root, "_ext", "usr", "include", "foo.h"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tree.Mirror(tt.path))
		})
	}
}

func TestTree_Output(t *testing.T) {
	base := t.TempDir()
	tree, err := New(base, filepath.Join(base, ".build"))
	require.NoError(t, err)

	src := filepath.Join(base, "app", "main.cpp")
	assert.Equal(t, filepath.Join(base, ".build", "app", "main"), tree.Output(src, ""))
	assert.Equal(t, filepath.Join(base, ".build", "app", "main.o"), tree.Output(src, ".o"))
	assert.Equal(t, filepath.Join(base, ".build", "app", "main.so"), tree.Output(src, ".so"))
}

func TestFolder(t *testing.T) {
	assert.Equal(t, ".build", Folder(".build", nil, "-"))
	assert.Equal(t, ".build-debug", Folder(".build", []string{"debug"}, "-"))

	modes := []string{"test", "debug"}
	assert.Equal(t, ".build-debug-test", Folder(".build", modes, "-"))
	assert.Equal(t, []string{"test", "debug"}, modes, "input modes must not be reordered")
}

package photo

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(exts ...string) *Store {
	return NewStore(nil, exts, nil)
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestStore_SaveAssignsIndicesInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Registration", "9999999999")
	store := newTestStore()

	files := []File{
		FromBytes("front.JPG", []byte("a")),
		FromBytes("side.png", []byte("b")),
		FromBytes("back.jpeg", []byte("c")),
	}
	saved, err := store.Save(files, dir, "p")
	require.NoError(t, err)
	require.Len(t, saved, 3)

	require.Equal(t, "p1.jpg", saved[0].Name)
	require.Equal(t, "p2.png", saved[1].Name)
	require.Equal(t, "p3.jpeg", saved[2].Name)
	require.ElementsMatch(t, []string{"p1.jpg", "p2.png", "p3.jpeg"}, listNames(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, "p2.png"))
	require.NoError(t, err)
	require.Equal(t, "b", string(data))
}

func TestStore_SkipsRejectedExtension(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(".jpg", ".jpeg", ".png")

	count, err := store.SaveUploads([]File{FromBytes("cat.gif", []byte("gif"))}, dir, "p")
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.Empty(t, listNames(t, dir))
}

func TestStore_SkipsUnnamedFiles(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore()

	files := []File{
		FromBytes("", []byte("x")),
		FromBytes("ok.webp", []byte("y")),
		{Name: "no-opener.jpg"},
	}
	count, err := store.SaveUploads(files, dir, "p")
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, []string{"p1.webp"}, listNames(t, dir))
}

func TestStore_ContinuesExistingSequence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.jpg"), []byte("old"), 0o644))
	store := newTestStore()

	saved, err := store.Save([]File{FromBytes("new.jpg", []byte("new"))}, dir, "p")
	require.NoError(t, err)
	require.Equal(t, "p2.jpg", saved[0].Name)

	data, err := os.ReadFile(filepath.Join(dir, "p1.jpg"))
	require.NoError(t, err)
	require.Equal(t, "old", string(data))
}

func TestStore_WritesDescriptionBesidePhoto(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore()

	first := FromBytes("a.jpg", []byte("1"))
	first.Description = "seen near market"
	second := FromBytes("b.png", []byte("2"))
	second.Description = "red shirt"

	saved, err := store.Save([]File{first, second}, dir, "m")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	require.Equal(t, "m1.txt", saved[0].DescriptionFile)
	require.Equal(t, "m2.txt", saved[1].DescriptionFile)

	desc, err := os.ReadFile(filepath.Join(dir, "m1.txt"))
	require.NoError(t, err)
	require.Equal(t, "seen near market", string(desc))
	require.ElementsMatch(t, []string{"m1.jpg", "m1.txt", "m2.png", "m2.txt"}, listNames(t, dir))
}

func TestStore_PartialFailureKeepsEarlierFiles(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore()

	broken := File{
		Name: "broken.jpg",
		Open: func() (io.ReadCloser, error) { return nil, errors.New("read failed") },
	}
	saved, err := store.Save([]File{FromBytes("ok.jpg", []byte("ok")), broken}, dir, "p")
	require.Error(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, []string{"p1.jpg"}, listNames(t, dir))
}

func TestStore_Allowed(t *testing.T) {
	store := newTestStore("JPG", ".png")

	require.True(t, store.Allowed("x.jpg"))
	require.True(t, store.Allowed("x.PNG"))
	require.False(t, store.Allowed("x.webp"))
	require.False(t, store.Allowed("noext"))

	require.True(t, store.HasAllowed([]File{FromBytes("a.gif", nil), FromBytes("b.jpg", nil)}))
	require.False(t, store.HasAllowed([]File{FromBytes("a.gif", nil)}))
	require.False(t, store.HasAllowed(nil))
}

func TestLayout(t *testing.T) {
	l := Layout{Root: "/data"}
	require.Equal(t, filepath.Join("/data", "Registration", "123456"), l.RegistrationDir("123456"))
	require.Equal(t, filepath.Join("/data", "Registration", "123456", "family"), l.FamilyDir("123456"))
	require.Equal(t, filepath.Join("/data", "Registration", "123456", "meta.json"), l.MetaPath("123456"))
	require.Equal(t, filepath.Join("/data", "Missing", "123456"), l.MissingDir("123456"))
	require.Equal(t, filepath.Join("/data", "Missing", "notifications.jsonl"), l.NotificationsPath())
}

package notestore

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/models"
	"github.com/starford/nnotes/internal/storage"
)

func testStore(t *testing.T) (*Store, *storage.FS) {
	t.Helper()
	blobs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(blobs, DefaultKey), blobs
}

type brokenBlobs struct {
	storage.Provider
}

func (brokenBlobs) Write(string, []byte) error {
	return errors.New("read-only file system")
}

func TestLoadMissingIsEmpty(t *testing.T) {
	s, _ := testStore(t)
	notes, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if notes == nil || len(notes) != 0 {
		t.Errorf("notes = %#v, want empty slice", notes)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s, _ := testStore(t)
	want := []models.Note{
		{ID: "1", Title: "first", Content: "a"},
		{ID: "2", Title: "second", Content: "b"},
		{ID: "3", Title: "third", Content: "c"},
	}
	for _, n := range want {
		if err := s.Append(n); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestAppendDuplicateID(t *testing.T) {
	s, _ := testStore(t)
	n := models.Note{ID: "1", Title: "t", Content: "c"}
	if err := s.Append(n); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(n); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestRemove(t *testing.T) {
	s, _ := testStore(t)
	for _, id := range []string{"1", "2", "3"} {
		if err := s.Append(models.Note{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := s.Remove("2")
	if err != nil || !removed {
		t.Fatalf("Remove(2) = %v, %v", removed, err)
	}
	notes, _ := s.Load()
	if len(notes) != 2 || notes[0].ID != "1" || notes[1].ID != "3" {
		t.Errorf("after remove: %+v", notes)
	}

	removed, err = s.Remove("2")
	if err != nil || removed {
		t.Errorf("second Remove(2) = %v, %v", removed, err)
	}
}

func TestRemoveAbsentDoesNotWrite(t *testing.T) {
	_, blobs := testStore(t)
	s := New(brokenBlobs{blobs}, DefaultKey)
	removed, err := s.Remove("nope")
	if err != nil || removed {
		t.Errorf("Remove = %v, %v", removed, err)
	}
}

func TestGet(t *testing.T) {
	s, _ := testStore(t)
	if err := s.Append(models.Note{ID: "1", Title: "t"}); err != nil {
		t.Fatal(err)
	}
	n, err := s.Get("1")
	if err != nil || n.Title != "t" {
		t.Errorf("Get(1) = %+v, %v", n, err)
	}
	if _, err := s.Get("2"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get(2) err = %v, want ErrNotFound", err)
	}
}

func TestCorruptSnapshot(t *testing.T) {
	s, blobs := testStore(t)
	if err := blobs.Write(DefaultKey, []byte("[{")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); !errors.Is(err, apperr.ErrStoreIO) {
		t.Errorf("Load err = %v, want ErrStoreIO", err)
	}
	if err := s.Append(models.Note{ID: "x"}); !errors.Is(err, apperr.ErrStoreIO) {
		t.Errorf("Append err = %v, want ErrStoreIO", err)
	}
}

func TestSaveFailure(t *testing.T) {
	_, blobs := testStore(t)
	s := New(brokenBlobs{blobs}, DefaultKey)
	err := s.Append(models.Note{ID: "1"})
	if !errors.Is(err, apperr.ErrStoreIO) {
		t.Errorf("err = %v, want ErrStoreIO", err)
	}
}

func TestSnapshotFormat(t *testing.T) {
	s, blobs := testStore(t)
	if err := s.Append(models.Note{ID: "1", Title: "T", Content: "C"}); err != nil {
		t.Fatal(err)
	}
	data, err := blobs.Read(DefaultKey)
	if err != nil {
		t.Fatal(err)
	}
	want := "[\n  {\n    \"id\": \"1\",\n    \"title\": \"T\",\n    \"content\": \"C\"\n  }\n]"
	if string(data) != want {
		t.Errorf("snapshot = %s", data)
	}
}

func TestFingerprint(t *testing.T) {
	s, _ := testStore(t)
	fp, err := s.Fingerprint()
	if err != nil || fp != "" {
		t.Fatalf("empty store fingerprint = %q, %v", fp, err)
	}
	if err := s.Append(models.Note{ID: "1"}); err != nil {
		t.Fatal(err)
	}
	first, _ := s.Fingerprint()
	if first == "" {
		t.Fatal("fingerprint empty after append")
	}
	if again, _ := s.Fingerprint(); again != first {
		t.Error("fingerprint changed without a write")
	}
	if err := s.Append(models.Note{ID: "2"}); err != nil {
		t.Fatal(err)
	}
	if second, _ := s.Fingerprint(); second == first {
		t.Error("fingerprint unchanged after append")
	}
}

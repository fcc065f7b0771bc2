package crop

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("jpg"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIndex_CropsInOrdinalOrder(t *testing.T) {
	dir := t.TempDir()
	ix := NewIndex(dir)

	ix.Add(Entry{Image: "b.jpg", Kind: KindTop, Ordinal: 1, Path: Path(dir, "b", KindTop, 1)})
	ix.Add(Entry{Image: "a.jpg", Kind: KindTop, Ordinal: 2, Path: Path(dir, "a", KindTop, 2)})
	ix.Add(Entry{Image: "a.jpg", Kind: KindDestination, Ordinal: 1, Path: Path(dir, "a", KindDestination, 1)})
	ix.Add(Entry{Image: "a.jpg", Kind: KindTop, Ordinal: 1, Path: Path(dir, "a", KindTop, 1)})

	got := ix.Crops("a", KindTop)
	want := []string{Path(dir, "a", KindTop, 1), Path(dir, "a", KindTop, 2)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Crops: got %v, want %v", got, want)
	}

	entries := ix.Entries()
	if entries[0].Image != "a" || entries[0].Kind != KindTop || entries[0].Ordinal != 1 {
		t.Errorf("first entry: got %+v", entries[0])
	}
	if entries[2].Kind != KindDestination {
		t.Errorf("top entries must sort before destination: %+v", entries)
	}
	if entries[0].Path != "top/a_top_1.jpg" {
		t.Errorf("entry path should be relative to the crop dir, got %q", entries[0].Path)
	}
	if len(ix.Crops("missing", KindTop)) != 0 {
		t.Error("expected no crops for unknown image")
	}
}

func TestIndex_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	ix := NewIndex(dir)
	ix.Add(Entry{Image: "IMG_1.jpg", Kind: KindTop, Ordinal: 1, Path: Path(dir, "IMG_1", KindTop, 1), Class: "top", Score: 0.9})

	if err := ix.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadIndex(dir)
	if err != nil {
		t.Fatalf("LoadIndex failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Entries(), ix.Entries()) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded.Entries(), ix.Entries())
	}
	if got := loaded.Crops("IMG_1", KindTop); len(got) != 1 || got[0] != Path(dir, "IMG_1", KindTop, 1) {
		t.Errorf("Crops after load: got %v", got)
	}
}

func TestLoadIndex_Errors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(IndexPath(dir), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIndex(dir); err == nil {
		t.Error("expected error for corrupt index")
	}
	if _, err := OpenLocator(dir); err == nil {
		t.Error("OpenLocator must not hide a corrupt index")
	}

	if err := os.WriteFile(IndexPath(dir), []byte(`{"version":99,"entries":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIndex(dir); err == nil {
		t.Error("expected error for unknown version")
	}
}

func TestProber(t *testing.T) {
	dir := t.TempDir()
	touch(t, Path(dir, "img", KindTop, 1))
	touch(t, Path(dir, "img", KindTop, 2))
	touch(t, Path(dir, "img", KindTop, 4)) // unreachable past the gap

	got := Prober{Dir: dir}.Crops("img", KindTop)
	want := []string{Path(dir, "img", KindTop, 1), Path(dir, "img", KindTop, 2)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if len(Prober{Dir: dir}.Crops("img", KindDestination)) != 0 {
		t.Error("expected no destination crops")
	}
}

func TestOpenLocator(t *testing.T) {
	dir := t.TempDir()

	loc, err := OpenLocator(dir)
	if err != nil {
		t.Fatalf("OpenLocator failed: %v", err)
	}
	if _, ok := loc.(Prober); !ok {
		t.Errorf("expected Prober without index, got %T", loc)
	}

	if err := NewIndex(dir).Save(); err != nil {
		t.Fatal(err)
	}
	loc, err = OpenLocator(dir)
	if err != nil {
		t.Fatalf("OpenLocator failed: %v", err)
	}
	if _, ok := loc.(*Index); !ok {
		t.Errorf("expected *Index when index.json exists, got %T", loc)
	}
}

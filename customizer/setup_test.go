package customizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/milk9111/avatar-customizer/assets"
	"github.com/milk9111/avatar-customizer/avatar"
	"github.com/milk9111/avatar-customizer/config"
	"github.com/milk9111/avatar-customizer/model"
	"github.com/milk9111/avatar-customizer/parts"
	"github.com/milk9111/avatar-customizer/scene"
	"github.com/milk9111/avatar-customizer/scene/scenetest"
)

// writePart exports a rigged test part as <dir>/<id>.glb.
func writePart(t *testing.T, dir, id string) {
	t.Helper()
	doc, err := model.Export(scenetest.RiggedPart(id))
	if err != nil {
		t.Fatalf("export %s: %v", id, err)
	}
	f, err := os.Create(filepath.Join(dir, id+assets.Ext))
	if err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	defer f.Close()
	if err := model.Encode(f, doc, true); err != nil {
		t.Fatalf("encode %s: %v", id, err)
	}
}

func TestSetupExportsComposedAvatar(t *testing.T) {
	assetDir := t.TempDir()
	outDir := t.TempDir()
	for _, id := range []string{"base", "bun", "cap"} {
		writePart(t, assetDir, id)
	}

	var s config.Settings
	s.Resolve(config.Flags{AssetDir: assetDir, PartsDir: t.TempDir(), ExportDir: outDir, Workers: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	su, err := NewSetup(ctx, s)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer su.Close()

	st := New(su.Options())
	st.NotifyContentLoaded()
	cfg := su.Defaults(avatar.Configuration{"hair": "bun", "top": avatar.None, "bottom": avatar.None, "hat": "cap"})
	st.RequestConfiguration(cfg)

	if err := Settle(ctx, st, time.Millisecond); err != nil {
		t.Fatalf("settle: %v", err)
	}
	for _, slot := range []string{"body", "hair", "hat"} {
		if len(st.AvatarNodes[slot].Children()) != 1 {
			t.Fatalf("slot %s not loaded", slot)
		}
	}

	st.RequestExport()
	if err := Settle(ctx, st, time.Millisecond); err != nil {
		t.Fatalf("settle export: %v", err)
	}
	want := filepath.Join(outDir, avatar.DefaultFilename)
	if st.LastExport != want {
		t.Fatalf("expected export at %s, got %q", want, st.LastExport)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	doc, err := model.Decode(data)
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(doc.Skins) != 1 {
		t.Fatalf("expected one skin, got %d", len(doc.Skins))
	}
	if _, err := os.Stat(filepath.Join(outDir, "custom_avatar.webp")); err != nil {
		t.Fatalf("expected a preview: %v", err)
	}
}

func TestSettleHonorsContext(t *testing.T) {
	st := New(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Settle(ctx, st, time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEmbeddedCatalogPartsLoad(t *testing.T) {
	cat, err := parts.LoadCatalog("", parts.CatalogFile)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	src := assets.Source{Embedded: assets.DefaultSource("").Embedded}
	l := assets.NewLoader(context.Background(), src, model.Parse, nil, 2)
	defer l.Close()

	want := 0
	for _, slot := range cat.Slots {
		for _, opt := range slot.Options {
			l.Load(slot.Name, 1, assets.PartPath(opt.ID))
			want++
		}
	}
	for i := 0; i < want; i++ {
		select {
		case res := <-l.Results():
			if res.Err != nil {
				t.Fatalf("%s: %v", res.Path, res.Err)
			}
			if scene.CountKind(res.Root, scene.KindMesh)+scene.CountKind(res.Root, scene.KindSkinnedMesh) == 0 {
				t.Fatalf("%s has no mesh", res.Path)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d parts", i, want)
		}
	}
}

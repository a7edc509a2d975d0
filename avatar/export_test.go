package avatar

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/milk9111/avatar-customizer/model"
	"github.com/milk9111/avatar-customizer/scene"
	"github.com/milk9111/avatar-customizer/scene/scenetest"
)

// composedAvatar builds a group laid out like the live scene: one node per slot.
func composedAvatar(parts map[string]*scene.Node) *scene.Node {
	group := scene.NewGroup("avatar")
	for _, slot := range []string{"body", "hair", "hat", "glasses"} {
		node := scene.NewGroup(slot)
		if p := parts[slot]; p != nil {
			node.Add(p)
		}
		group.Add(node)
	}
	return group
}

func skinnedSkeletons(root *scene.Node) []*scene.Skeleton {
	var out []*scene.Skeleton
	root.Traverse(func(n *scene.Node) {
		if n.Kind() == scene.KindSkinnedMesh {
			out = append(out, n.Skeleton)
		}
	})
	return out
}

func TestMergeSharesOneSkeleton(t *testing.T) {
	group := composedAvatar(map[string]*scene.Node{
		"body":    scenetest.RiggedPart("body"),
		"hair":    scenetest.RiggedPart("hair"),
		"glasses": scenetest.StaticPart("glasses"),
	})

	merged, err := Merge(group)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	skels := skinnedSkeletons(merged)
	if len(skels) != 2 {
		t.Fatalf("expected 2 skinned meshes, got %d", len(skels))
	}
	if skels[0] != skels[1] {
		t.Fatalf("all skinned meshes should reference the canonical skeleton")
	}

	parts := merged.Children()
	if n := scene.CountKind(parts[0], scene.KindBone); n != len(scenetest.Bones) {
		t.Fatalf("canonical part should keep its %d bones, got %d", len(scenetest.Bones), n)
	}
	for _, p := range parts[1:] {
		if n := scene.CountKind(p, scene.KindBone); n != 0 {
			t.Fatalf("part %s kept %d bones", p.Name, n)
		}
	}

	roots := 0
	merged.Traverse(func(n *scene.Node) {
		if n.Name == AvatarRootName {
			roots++
		}
	})
	if roots != 1 {
		t.Fatalf("expected a single %s after merge, got %d", AvatarRootName, roots)
	}

	if n := scene.CountKind(group, scene.KindBone); n != 2*len(scenetest.Bones) {
		t.Fatalf("merge must not touch the live avatar, it now has %d bones", n)
	}
	if len(skinnedSkeletons(group)) == 2 && skinnedSkeletons(group)[0] == skinnedSkeletons(group)[1] {
		t.Fatalf("live avatar skeletons were re-pointed")
	}
}

func TestMergeCanonicalFollowsSlotOrder(t *testing.T) {
	group := composedAvatar(map[string]*scene.Node{
		"hair": scenetest.RiggedPart("hair"),
		"hat":  scenetest.RiggedPart("hat"),
	})
	merged, err := Merge(group)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	hair := merged.Children()[1]
	if n := scene.CountKind(hair, scene.KindBone); n == 0 {
		t.Fatalf("first skinned slot (hair) should be canonical and keep its bones")
	}
	if n := scene.CountKind(merged.Children()[2], scene.KindBone); n != 0 {
		t.Fatalf("hat should lose its bones, has %d", n)
	}
}

func TestMergeErrors(t *testing.T) {
	cases := []struct {
		name  string
		parts map[string]*scene.Node
		want  error
	}{
		{"empty", map[string]*scene.Node{}, ErrEmptyAvatar},
		{"unskinned", map[string]*scene.Node{"glasses": scenetest.StaticPart("glasses")}, ErrNoSkeleton},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Merge(composedAvatar(c.parts))
			if !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestExportBinary(t *testing.T) {
	group := composedAvatar(map[string]*scene.Node{
		"body": scenetest.RiggedPart("body"),
		"hair": scenetest.RiggedPart("hair"),
		"hat":  scenetest.RiggedPart("hat"),
	})
	dir := t.TempDir()
	previewed := false
	e := &Exporter{
		Dir:    filepath.Join(dir, "out"),
		Binary: true,
		Preview: func(root *scene.Node, w io.Writer) error {
			previewed = true
			_, err := w.Write([]byte("RIFF"))
			return err
		},
	}

	out, err := e.Export(group)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if filepath.Base(out) != DefaultFilename {
		t.Fatalf("expected %s, got %s", DefaultFilename, out)
	}
	if !previewed {
		t.Fatalf("preview hook not called")
	}
	if _, err := os.Stat(strings.TrimSuffix(out, ".glb") + ".webp"); err != nil {
		t.Fatalf("preview file missing: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	doc, err := model.Decode(data)
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(doc.Skins) != 1 {
		t.Fatalf("expected exactly one skin in the export, got %d", len(doc.Skins))
	}

	root, err := model.Import(doc)
	if err != nil {
		t.Fatalf("import export: %v", err)
	}
	skels := skinnedSkeletons(root)
	if len(skels) != 3 {
		t.Fatalf("expected 3 skinned meshes, got %d", len(skels))
	}
	for _, s := range skels[1:] {
		if s != skels[0] {
			t.Fatalf("re-imported meshes should share one skeleton")
		}
	}
	if n := scene.CountKind(root, scene.KindBone); n != len(scenetest.Bones) {
		t.Fatalf("expected only the canonical %d bones, got %d", len(scenetest.Bones), n)
	}
}

func TestExportDiagnostic(t *testing.T) {
	group := composedAvatar(map[string]*scene.Node{"body": scenetest.RiggedPart("body")})
	var copied []byte
	e := &Exporter{Dir: t.TempDir(), Clipboard: func(b []byte) { copied = b }}

	out, err := e.Export(group)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if out != "" {
		t.Fatalf("diagnostic export should not write a file, wrote %s", out)
	}
	if !strings.Contains(string(copied), `"generator":"`+model.Generator+`"`) {
		t.Fatalf("clipboard should receive the JSON document, got %.80s", copied)
	}
	if entries, _ := os.ReadDir(e.Dir); len(entries) != 0 {
		t.Fatalf("diagnostic export wrote %d files", len(entries))
	}
}

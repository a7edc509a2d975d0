package model

import (
	"fmt"
	"io"

	"github.com/milk9111/avatar-customizer/scene"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Generator is written into the asset header of exported documents.
const Generator = "avatar-customizer"

// Export converts the tree rooted at root into a glTF document with a single
// scene. Light nodes are skipped. Every distinct skeleton becomes one skin;
// its bones must live inside the tree.
func Export(root *scene.Node) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	doc.Asset.Generator = Generator

	ex := &exporter{
		doc:       doc,
		index:     make(map[*scene.Node]int),
		skins:     make(map[*scene.Skeleton]int),
		materials: make(map[[4]float32]int),
	}

	rootIdx := ex.addNode(root)
	if rootIdx < 0 {
		return nil, fmt.Errorf("model: export root must not be a light")
	}
	if err := ex.resolve(root); err != nil {
		return nil, err
	}

	if len(doc.Scenes) == 0 {
		doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	}
	doc.Scenes[0].Nodes = []int{rootIdx}
	return doc, nil
}

// Encode writes doc as GLB (binary) or as JSON with embedded buffers.
func Encode(w io.Writer, doc *gltf.Document, binary bool) error {
	if !binary {
		for _, b := range doc.Buffers {
			if b.URI == "" && len(b.Data) > 0 {
				b.EmbeddedResource()
			}
		}
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("model: encode: %w", err)
	}
	return nil
}

type exporter struct {
	doc       *gltf.Document
	index     map[*scene.Node]int
	skins     map[*scene.Skeleton]int
	materials map[[4]float32]int
}

// addNode appends n and its subtree, parents before children, and returns n's index.
func (ex *exporter) addNode(n *scene.Node) int {
	if n.Kind() == scene.KindLight {
		return -1
	}
	q := n.Transform.Rotation
	gn := &gltf.Node{
		Name:        n.Name,
		Translation: n.Transform.Translation,
		Rotation:    [4]float64{q.V[0], q.V[1], q.V[2], q.W},
		Scale:       n.Transform.Scale,
	}
	idx := len(ex.doc.Nodes)
	ex.doc.Nodes = append(ex.doc.Nodes, gn)
	ex.index[n] = idx

	for _, c := range n.Children() {
		if ci := ex.addNode(c); ci >= 0 {
			gn.Children = append(gn.Children, ci)
		}
	}
	return idx
}

// resolve writes meshes and skins once every node has an index.
func (ex *exporter) resolve(root *scene.Node) error {
	var err error
	root.Traverse(func(n *scene.Node) {
		if err != nil || n.Geometry == nil {
			return
		}
		idx, ok := ex.index[n]
		if !ok {
			return
		}
		kind := n.Kind()
		if kind != scene.KindMesh && kind != scene.KindSkinnedMesh {
			return
		}

		gn := ex.doc.Nodes[idx]
		skinned := kind == scene.KindSkinnedMesh && n.Skeleton != nil
		gn.Mesh = ptr(ex.mesh(n.Name, n.Geometry, skinned))
		if skinned {
			var skin int
			if skin, err = ex.skin(n.Skeleton); err != nil {
				err = fmt.Errorf("model: mesh %q: %w", n.Name, err)
				return
			}
			gn.Skin = ptr(skin)
		}
	})
	return err
}

func (ex *exporter) mesh(name string, geo *scene.Geometry, skinned bool) int {
	doc := ex.doc
	attrs := map[string]int{
		gltf.POSITION: modeler.WritePosition(doc, geo.Positions),
	}
	if len(geo.Normals) == len(geo.Positions) && len(geo.Normals) > 0 {
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, geo.Normals)
	}
	if skinned && len(geo.Joints) == len(geo.Positions) && len(geo.Weights) == len(geo.Positions) {
		attrs[gltf.JOINTS_0] = modeler.WriteJoints(doc, geo.Joints)
		attrs[gltf.WEIGHTS_0] = modeler.WriteWeights(doc, geo.Weights)
	}

	prim := &gltf.Primitive{
		Attributes: attrs,
		Material:   ptr(ex.material(geo.Color)),
	}
	if len(geo.Indices) > 0 {
		prim.Indices = ptr(modeler.WriteIndices(doc, geo.Indices))
	}

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}})
	return len(doc.Meshes) - 1
}

func (ex *exporter) skin(s *scene.Skeleton) (int, error) {
	if idx, ok := ex.skins[s]; ok {
		return idx, nil
	}

	joints := make([]int, len(s.Bones))
	for i, b := range s.Bones {
		idx, ok := ex.index[b]
		if !ok {
			name := ""
			if b != nil {
				name = b.Name
			}
			return 0, fmt.Errorf("%w: %q", ErrUnknownBone, name)
		}
		joints[i] = idx
	}

	skin := &gltf.Skin{Joints: joints}
	if len(s.InverseBind) == len(s.Bones) && len(s.Bones) > 0 {
		mats := make([][4][4]float32, len(s.InverseBind))
		for i, m := range s.InverseBind {
			for j, v := range m {
				mats[i][j/4][j%4] = float32(v)
			}
		}
		skin.InverseBindMatrices = ptr(modeler.WriteAccessor(ex.doc, gltf.TargetNone, mats))
	}

	ex.doc.Skins = append(ex.doc.Skins, skin)
	idx := len(ex.doc.Skins) - 1
	ex.skins[s] = idx
	return idx, nil
}

func (ex *exporter) material(color [4]float32) int {
	if idx, ok := ex.materials[color]; ok {
		return idx
	}
	factor := [4]float64{float64(color[0]), float64(color[1]), float64(color[2]), float64(color[3])}
	ex.doc.Materials = append(ex.doc.Materials, &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{BaseColorFactor: &factor},
	})
	idx := len(ex.doc.Materials) - 1
	ex.materials[color] = idx
	return idx
}

func ptr(i int) *int {
	return &i
}

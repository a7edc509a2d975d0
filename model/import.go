// Package model converts between glTF 2.0 documents and scene graphs.
package model

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/avatar-customizer/scene"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

var (
	// ErrNoScene is returned for documents without any scene to import.
	ErrNoScene = errors.New("model: document has no scene")
	// ErrUnknownBone is returned when a skeleton references a bone outside the exported tree.
	ErrUnknownBone = errors.New("model: skeleton bone is not part of the exported tree")
)

// Decode parses a .glb or .gltf payload.
func Decode(data []byte) (*gltf.Document, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("model: decode: %w", err)
	}
	return doc, nil
}

// Parse decodes a payload and imports its primary scene.
func Parse(data []byte) (*scene.Node, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Import(doc)
}

// Import builds a scene graph from the document's primary scene. The returned
// group holds the scene's root nodes. Skin joints become bones, meshes with a
// skin become skinned meshes, and multi-primitive meshes become a group with one
// child mesh per primitive.
func Import(doc *gltf.Document) (*scene.Node, error) {
	if len(doc.Scenes) == 0 {
		return nil, ErrNoScene
	}
	sceneIdx := 0
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		sceneIdx = *doc.Scene
	}
	gs := doc.Scenes[sceneIdx]

	joints := make(map[int]bool)
	for _, skin := range doc.Skins {
		for _, j := range skin.Joints {
			joints[j] = true
		}
	}

	im := &importer{doc: doc, joints: joints, nodes: make(map[int]*scene.Node)}
	root := scene.NewGroup(gs.Name)
	for _, idx := range gs.Nodes {
		n, err := im.node(idx)
		if err != nil {
			return nil, err
		}
		root.Add(n)
	}

	for _, p := range im.pending {
		skel, err := im.skeleton(p.skin)
		if err != nil {
			return nil, err
		}
		p.node.Skeleton = skel
	}
	return root, nil
}

type pendingSkin struct {
	node *scene.Node
	skin int
}

type importer struct {
	doc       *gltf.Document
	joints    map[int]bool
	nodes     map[int]*scene.Node
	skeletons map[int]*scene.Skeleton
	pending   []pendingSkin
}

func (im *importer) node(idx int) (*scene.Node, error) {
	if idx < 0 || idx >= len(im.doc.Nodes) {
		return nil, fmt.Errorf("model: node index %d out of range", idx)
	}
	if _, seen := im.nodes[idx]; seen {
		return nil, fmt.Errorf("model: node %d appears twice in the hierarchy", idx)
	}
	gn := im.doc.Nodes[idx]

	var gm *gltf.Mesh
	if gn.Mesh != nil && !im.joints[idx] {
		if *gn.Mesh < 0 || *gn.Mesh >= len(im.doc.Meshes) {
			return nil, fmt.Errorf("model: mesh index %d out of range", *gn.Mesh)
		}
		gm = im.doc.Meshes[*gn.Mesh]
	}

	meshKind := scene.KindMesh
	if gn.Skin != nil {
		meshKind = scene.KindSkinnedMesh
	}

	kind := scene.KindGroup
	switch {
	case im.joints[idx]:
		kind = scene.KindBone
	case gm != nil && len(gm.Primitives) == 1:
		kind = meshKind
	}

	n := scene.NewNode(kind, gn.Name)
	n.Transform = nodeTransform(gn)
	im.nodes[idx] = n

	if gm != nil {
		targets := []*scene.Node{n}
		if len(gm.Primitives) > 1 {
			targets = targets[:0]
			for i := range gm.Primitives {
				child := scene.NewNode(meshKind, fmt.Sprintf("%s_%d", gm.Name, i))
				n.Add(child)
				targets = append(targets, child)
			}
		}
		for i, prim := range gm.Primitives {
			geo, err := im.geometry(prim)
			if err != nil {
				return nil, fmt.Errorf("model: mesh %q primitive %d: %w", gm.Name, i, err)
			}
			targets[i].Geometry = geo
			if gn.Skin != nil {
				im.pending = append(im.pending, pendingSkin{node: targets[i], skin: *gn.Skin})
			}
		}
	}

	for _, c := range gn.Children {
		child, err := im.node(c)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

func (im *importer) geometry(prim *gltf.Primitive) (*scene.Geometry, error) {
	doc := im.doc
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.New("missing POSITION attribute")
	}

	geo := &scene.Geometry{Color: [4]float32{1, 1, 1, 1}}
	acr, err := im.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	if geo.Positions, err = modeler.ReadPosition(doc, acr, nil); err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acr, err = im.accessor(idx); err != nil {
			return nil, err
		}
		if geo.Normals, err = modeler.ReadNormal(doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
	}
	if prim.Indices != nil {
		if acr, err = im.accessor(*prim.Indices); err != nil {
			return nil, err
		}
		if geo.Indices, err = modeler.ReadIndices(doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	} else {
		geo.Indices = make([]uint32, len(geo.Positions))
		for i := range geo.Indices {
			geo.Indices[i] = uint32(i)
		}
	}
	if idx, ok := prim.Attributes[gltf.JOINTS_0]; ok {
		if acr, err = im.accessor(idx); err != nil {
			return nil, err
		}
		if geo.Joints, err = modeler.ReadJoints(doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read joints: %w", err)
		}
	}
	if idx, ok := prim.Attributes[gltf.WEIGHTS_0]; ok {
		if acr, err = im.accessor(idx); err != nil {
			return nil, err
		}
		if geo.Weights, err = modeler.ReadWeights(doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read weights: %w", err)
		}
	}

	if prim.Material != nil && *prim.Material < len(doc.Materials) {
		if pbr := doc.Materials[*prim.Material].PBRMetallicRoughness; pbr != nil {
			c := pbr.BaseColorFactorOrDefault()
			geo.Color = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
		}
	}
	return geo, nil
}

func (im *importer) skeleton(skinIdx int) (*scene.Skeleton, error) {
	if s, ok := im.skeletons[skinIdx]; ok {
		return s, nil
	}
	if skinIdx < 0 || skinIdx >= len(im.doc.Skins) {
		return nil, fmt.Errorf("model: skin index %d out of range", skinIdx)
	}
	skin := im.doc.Skins[skinIdx]

	s := &scene.Skeleton{
		Bones:       make([]*scene.Node, len(skin.Joints)),
		InverseBind: make([]mgl64.Mat4, len(skin.Joints)),
	}
	for i, j := range skin.Joints {
		bone, ok := im.nodes[j]
		if !ok {
			return nil, fmt.Errorf("model: skin %q joint %d is not in the scene", skin.Name, j)
		}
		s.Bones[i] = bone
		s.InverseBind[i] = mgl64.Ident4()
	}

	if skin.InverseBindMatrices != nil {
		acr, err := im.accessor(*skin.InverseBindMatrices)
		if err != nil {
			return nil, err
		}
		data, err := modeler.ReadAccessor(im.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("model: skin %q inverse bind matrices: %w", skin.Name, err)
		}
		mats, ok := data.([][4][4]float32)
		if !ok {
			return nil, fmt.Errorf("model: skin %q inverse bind matrices have type %T", skin.Name, data)
		}
		for i := 0; i < len(mats) && i < len(s.InverseBind); i++ {
			var m mgl64.Mat4
			for c, col := range mats[i] {
				for r, v := range col {
					m[c*4+r] = float64(v)
				}
			}
			s.InverseBind[i] = m
		}
	}

	if im.skeletons == nil {
		im.skeletons = make(map[int]*scene.Skeleton)
	}
	im.skeletons[skinIdx] = s
	return s, nil
}

func (im *importer) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(im.doc.Accessors) {
		return nil, fmt.Errorf("model: accessor index %d out of range", idx)
	}
	return im.doc.Accessors[idx], nil
}

func nodeTransform(gn *gltf.Node) scene.Transform {
	m := mgl64.Mat4(gn.Matrix)
	if m != (mgl64.Mat4{}) && m != mgl64.Ident4() {
		return decompose(m)
	}
	r := gn.RotationOrDefault()
	return scene.Transform{
		Translation: gn.TranslationOrDefault(),
		Rotation:    mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}},
		Scale:       gn.ScaleOrDefault(),
	}
}

// decompose splits an affine matrix into translation, rotation and scale.
// Shear is discarded.
func decompose(m mgl64.Mat4) scene.Transform {
	t := scene.IdentityTransform()
	t.Translation = m.Col(3).Vec3()
	cols := [3]mgl64.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	for i, c := range cols {
		t.Scale[i] = c.Len()
		if t.Scale[i] < 1e-12 {
			return t
		}
		cols[i] = c.Mul(1 / t.Scale[i])
	}
	rot := mgl64.Mat4FromCols(cols[0].Vec4(0), cols[1].Vec4(0), cols[2].Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	t.Rotation = mgl64.Mat4ToQuat(rot).Normalize()
	return t
}

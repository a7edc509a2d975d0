// Package scenetest builds small rigged parts for tests.
package scenetest

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/avatar-customizer/scene"
)

// RootName is the marker name rigged parts carry on their armature root.
const RootName = "AvatarRoot"

// Bones used by every rig built here, parent before child.
var Bones = []string{"Hips", "Spine", "Head"}

// RiggedPart builds a part laid out like an exported .glb:
//
//	<name>
//	├── AvatarRoot
//	│   └── Hips ── Spine ── Head
//	└── <name>Mesh (skinned, bound to the three bones)
func RiggedPart(name string) *scene.Node {
	root := scene.NewGroup(name)
	armature := scene.NewGroup(RootName)
	root.Add(armature)

	skel := &scene.Skeleton{}
	parent := armature
	for i, b := range Bones {
		bone := scene.NewNode(scene.KindBone, b)
		bone.Transform.Translation = mgl64.Vec3{0, 0.1 * float64(i), 0}
		parent.Add(bone)
		parent = bone
		skel.Bones = append(skel.Bones, bone)
		skel.InverseBind = append(skel.InverseBind, mgl64.Translate3D(0, -0.1*float64(i), 0))
	}

	mesh := scene.NewNode(scene.KindSkinnedMesh, name+"Mesh")
	mesh.Geometry = Triangle([4]float32{0.8, 0.6, 0.5, 1})
	mesh.Skeleton = skel
	root.Add(mesh)
	return root
}

// StaticPart builds an unrigged part holding one plain mesh.
func StaticPart(name string) *scene.Node {
	root := scene.NewGroup(name)
	mesh := scene.NewNode(scene.KindMesh, name+"Mesh")
	mesh.Geometry = Triangle([4]float32{0.2, 0.2, 0.9, 1})
	mesh.Geometry.Joints = nil
	mesh.Geometry.Weights = nil
	root.Add(mesh)
	return root
}

// Triangle returns a single front-facing triangle bound to joint 0.
func Triangle(color [4]float32) *scene.Geometry {
	return &scene.Geometry{
		Positions: [][3]float32{{-0.5, -0.5, 0}, {0.5, -0.5, 0}, {0, 0.5, 0}},
		Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Indices:   []uint32{0, 1, 2},
		Joints:    [][4]uint16{{0, 0, 0, 0}, {1, 0, 0, 0}, {2, 0, 0, 0}},
		Weights:   [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
		Color:     color,
	}
}

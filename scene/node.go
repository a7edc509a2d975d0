// Package scene is a small engine-agnostic scene graph: groups, meshes,
// skinned meshes, bones and lights, plus the tree walks the exporter needs.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Kind tags what a node is.
type Kind int

const (
	KindGroup Kind = iota
	KindMesh
	KindSkinnedMesh
	KindBone
	KindLight
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "Group"
	case KindMesh:
		return "Mesh"
	case KindSkinnedMesh:
		return "SkinnedMesh"
	case KindBone:
		return "Bone"
	case KindLight:
		return "Light"
	default:
		return "Unknown"
	}
}

// Transform is a node's local translation, rotation and scale.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3
}

// IdentityTransform returns a transform that leaves children in place.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent(), Scale: mgl64.Vec3{1, 1, 1}}
}

// Matrix returns T * R * S.
func (t Transform) Matrix() mgl64.Mat4 {
	tr := mgl64.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
	sc := mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return tr.Mul4(t.Rotation.Mat4()).Mul4(sc)
}

// Geometry holds one triangle list. Clones share geometry, so treat it as immutable.
type Geometry struct {
	Positions [][3]float32
	Normals   [][3]float32
	Indices   []uint32
	Joints    [][4]uint16
	Weights   [][4]float32
	Color     [4]float32 // base color factor, RGBA 0..1
}

// Skeleton is a bone list plus the bind pose, indexed like the skinned vertices' joints.
type Skeleton struct {
	Bones       []*Node
	InverseBind []mgl64.Mat4
}

// LightKind distinguishes light nodes.
type LightKind int

const (
	LightAmbient LightKind = iota
	LightDirectional
)

// Light describes a light node. Directional lights shine from the node's world
// position towards the origin.
type Light struct {
	Kind      LightKind
	Color     uint32 // 0xRRGGBB
	Intensity float64
}

// Node is one element of the tree.
type Node struct {
	Name      string
	Transform Transform
	Geometry  *Geometry
	Skeleton  *Skeleton
	Light     *Light

	kind     Kind
	parent   *Node
	children []*Node
}

// NewNode creates a detached node of the given kind.
func NewNode(kind Kind, name string) *Node {
	return &Node{Name: name, kind: kind, Transform: IdentityTransform()}
}

// NewGroup creates a detached group node.
func NewGroup(name string) *Node {
	return NewNode(KindGroup, name)
}

// NewLight creates a detached light node.
func NewLight(kind LightKind, color uint32, intensity float64) *Node {
	n := NewNode(KindLight, "")
	n.Light = &Light{Kind: kind, Color: color, Intensity: intensity}
	return n
}

// Kind reports the node's type tag.
func (n *Node) Kind() Kind {
	return n.kind
}

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's children. The slice must not be modified.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	return n.children
}

// Add attaches children, detaching each from any previous parent first.
func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
}

// Remove detaches a direct child. It reports whether the child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c != child {
			continue
		}
		n.children = append(n.children[:i], n.children[i+1:]...)
		c.parent = nil
		return true
	}
	return false
}

// Clear detaches every child and returns them.
func (n *Node) Clear() []*Node {
	removed := n.children
	for _, c := range removed {
		c.parent = nil
	}
	n.children = nil
	return removed
}

// Traverse calls fn for n and every descendant, depth first, parents before children.
func (n *Node) Traverse(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.children {
		c.Traverse(fn)
	}
}

// WorldMatrix composes the local transforms from the root down to n.
func (n *Node) WorldMatrix() mgl64.Mat4 {
	m := n.Transform.Matrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Transform.Matrix().Mul4(m)
	}
	return m
}

// Clone deep-copies the subtree rooted at n. Skeletons whose bones live inside
// the subtree are rebuilt to point at the cloned bones; bones outside the
// subtree are kept as-is. The clone is detached.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	mapping := make(map[*Node]*Node)
	root := n.cloneInto(mapping)

	skeletons := make(map[*Skeleton]*Skeleton)
	root.Traverse(func(c *Node) {
		if c.Skeleton == nil {
			return
		}
		if s, ok := skeletons[c.Skeleton]; ok {
			c.Skeleton = s
			return
		}
		s := &Skeleton{
			Bones:       make([]*Node, len(c.Skeleton.Bones)),
			InverseBind: append([]mgl64.Mat4(nil), c.Skeleton.InverseBind...),
		}
		for i, b := range c.Skeleton.Bones {
			if mb, ok := mapping[b]; ok {
				s.Bones[i] = mb
			} else {
				s.Bones[i] = b
			}
		}
		skeletons[c.Skeleton] = s
		c.Skeleton = s
	})
	return root
}

func (n *Node) cloneInto(mapping map[*Node]*Node) *Node {
	c := &Node{
		Name:      n.Name,
		Transform: n.Transform,
		Geometry:  n.Geometry,
		Skeleton:  n.Skeleton,
		kind:      n.kind,
	}
	if n.Light != nil {
		l := *n.Light
		c.Light = &l
	}
	mapping[n] = c
	for _, child := range n.children {
		cc := child.cloneInto(mapping)
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}

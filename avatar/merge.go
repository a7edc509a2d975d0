package avatar

import (
	"errors"

	"github.com/milk9111/avatar-customizer/scene"
)

// AvatarRootName is the armature root name every part asset ships with.
// Non-canonical parts lose it on export so the merged file has only one.
const AvatarRootName = "AvatarRoot"

var (
	// ErrEmptyAvatar is returned when no slot holds a part.
	ErrEmptyAvatar = errors.New("avatar: nothing to export")
	// ErrNoSkeleton is returned when parts are loaded but none is skinned.
	ErrNoSkeleton = errors.New("avatar: no skinned part to take the skeleton from")
)

// Merge clones group and folds every part onto one skeleton. The first part
// node, in child order, containing a skinned mesh provides the canonical
// skeleton; every other part has its bones removed, its skinned meshes
// re-pointed at the canonical skeleton, and its AvatarRootName nodes unnamed.
// Joint indices are not remapped, so parts must share the rig's joint order.
// group itself is never modified.
func Merge(group *scene.Node) (*scene.Node, error) {
	clone := group.Clone()

	var canonical *scene.Node
	var skeleton *scene.Skeleton
	empty := true
	for _, part := range clone.Children() {
		if len(part.Children()) > 0 {
			empty = false
		}
		if s := scene.FindSkeleton(part); s != nil {
			canonical, skeleton = part, s
			break
		}
	}
	if canonical == nil {
		if empty {
			return nil, ErrEmptyAvatar
		}
		return nil, ErrNoSkeleton
	}

	for _, part := range clone.Children() {
		if part == canonical {
			continue
		}
		scene.RemoveBones(part)
		scene.SetSkeleton(part, skeleton)
		scene.StripName(part, AvatarRootName)
	}
	return clone, nil
}

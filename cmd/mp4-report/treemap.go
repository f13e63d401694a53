// Command mp4-report renders the box tree of an MP4/ISO-BMFF file as an HTML
// treemap sized by each atom's serialized byte size, for spotting where a
// file's bytes actually went without a hex editor.
package main

import (
	"fmt"

	"github.com/fieldcam/cameracore/internal/mp4"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// buildTreeMapNode converts one atom (and its children) into a treemap node
// sized by the atom's own serialized size. Only leaf nodes carry an explicit
// Value: an atom with children is sized by the sum of its children in the
// rendered chart, the same way a directory's size on disk is implied by its
// contents rather than stated separately.
func buildTreeMapNode(box mp4.Box, index int) opts.TreeMapNode {
	children := box.Basic().Children()
	node := opts.TreeMapNode{
		Name: fmt.Sprintf("%s[%d]", box.Basic().Type(), index),
	}
	if len(children) == 0 {
		node.Value = int(box.Basic().DataSize())
		return node
	}
	node.Children = make([]opts.TreeMapNode, len(children))
	for i, c := range children {
		node.Children[i] = buildTreeMapNode(c, i)
	}
	return node
}

// buildTreeMapRoots converts a file's top-level atoms into treemap roots.
func buildTreeMapRoots(atoms []mp4.Box) []opts.TreeMapNode {
	roots := make([]opts.TreeMapNode, len(atoms))
	for i, a := range atoms {
		roots[i] = buildTreeMapNode(a, i)
	}
	return roots
}

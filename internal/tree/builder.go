// Package tree assembles the canonical three-level category tree from a
// source's flat, parent-linked category listing.
package tree

import (
	"strings"

	"pricescout/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Build links the three levels in order 1→2→3. A child is attached only when
// its parent code was registered by an earlier level, so levels must not be
// processed out of order. Ids and link codes are taken once; repeated entries
// are dropped, which also breaks any cycle a source might emit.
func Build(raw domain.RawLevels) *domain.CategoryTree {
	t := &domain.CategoryTree{Roots: make([]*domain.CategoryNode, 0, len(raw.First))}

	byCode := make(map[string]*domain.CategoryNode)
	seen := make(map[string]struct{})
	dropped := 0

	levels := [][]domain.RawCategory{raw.First, raw.Second, raw.Third}
	for i, entries := range levels {
		level := i + 1
		for _, entry := range entries {
			code := entry.LinkCode()
			if _, dup := seen[entry.ID]; dup {
				dropped++
				continue
			}
			if _, dup := byCode[code]; dup {
				dropped++
				continue
			}

			node := &domain.CategoryNode{
				ID:    entry.ID,
				Name:  strings.TrimSpace(entry.Name),
				Level: level,
			}

			if level == 1 {
				t.Roots = append(t.Roots, node)
			} else {
				parent, ok := byCode[entry.ParentCode]
				if !ok || parent.Level != level-1 {
					dropped++
					continue
				}
				parent.Children = append(parent.Children, node)
			}

			seen[entry.ID] = struct{}{}
			byCode[code] = node
		}
	}

	if dropped > 0 {
		log.Debugf("Dropped %d duplicate or orphaned category entries", dropped)
	}

	return t
}

// Lines renders every node as a slash-separated path, one per line, with
// ancestors listed before their descendants.
func Lines(t *domain.CategoryTree) []string {
	var lines []string
	var walk func(n *domain.CategoryNode, prefix string)
	walk = func(n *domain.CategoryNode, prefix string) {
		p := prefix + "/" + n.Name
		lines = append(lines, p)
		for _, c := range n.Children {
			walk(c, p)
		}
	}
	for _, root := range t.Roots {
		walk(root, "")
	}
	return lines
}

package domain

// CategoryNode is one node of the canonical three-level category tree.
type CategoryNode struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Level    int             `json:"level"`
	Children []*CategoryNode `json:"children,omitempty"`
}

// CategoryTree holds the level 1 roots in source order.
type CategoryTree struct {
	Roots []*CategoryNode `json:"category"`
}

// CategoryPath identifies a leaf together with its ancestors.
type CategoryPath struct {
	Level1 *CategoryNode
	Level2 *CategoryNode
	Level3 *CategoryNode
}

// Names returns the display names of the three levels.
func (p CategoryPath) Names() [3]string {
	return [3]string{p.Level1.Name, p.Level2.Name, p.Level3.Name}
}

// Leaves returns every level 3 node in traversal order.
func (t *CategoryTree) Leaves() []CategoryPath {
	var paths []CategoryPath
	for _, l1 := range t.Roots {
		for _, l2 := range l1.Children {
			for _, l3 := range l2.Children {
				paths = append(paths, CategoryPath{Level1: l1, Level2: l2, Level3: l3})
			}
		}
	}
	return paths
}

// RawCategory is a single entry of a source's flat category listing.
// Code is the linkage key children refer to via ParentCode; it falls back to ID when a source has no codes.
type RawCategory struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	ParentCode string `json:"parentCode"`
	Name       string `json:"name"`
}

// LinkCode returns the key children use to reference this entry.
func (c RawCategory) LinkCode() string {
	if c.Code != "" {
		return c.Code
	}
	return c.ID
}

// RawLevels is the per-level category listing a source returns before tree assembly.
type RawLevels struct {
	First  []RawCategory `json:"fristLevelDatas"`
	Second []RawCategory `json:"secondLevelDatas"`
	Third  []RawCategory `json:"thirdLevelDatas"`
}

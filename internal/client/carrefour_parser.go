package client

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"pricescout/crawler/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

type carrefourParser struct{}

// ParseCategories reads the three nested menu levels of the storefront home page.
// Second level codes are scoped by their level 1 id because the page only
// guarantees uniqueness within one level 1 menu.
func (p *carrefourParser) ParseCategories(html string) (domain.RawLevels, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.RawLevels{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var levels domain.RawLevels

	doc.Find(".first-level-item").Each(func(i int, s *goquery.Selection) {
		id, ok := s.Attr("data-cgid")
		if !ok {
			return
		}
		levels.First = append(levels.First, domain.RawCategory{
			ID:   id,
			Name: strings.TrimSpace(s.Text()),
		})
	})

	doc.Find(".second-level-wrapper").Each(func(i int, wrapper *goquery.Selection) {
		parent := classAt(wrapper, 1)
		if parent == "" {
			return
		}
		wrapper.Find("li").Each(func(j int, li *goquery.Selection) {
			id, ok := li.Attr("id")
			if !ok {
				return
			}
			levels.Second = append(levels.Second, domain.RawCategory{
				ID:         id,
				Code:       secondLevelCode(parent, id),
				ParentCode: parent,
				Name:       strings.TrimSpace(li.Text()),
			})
		})
	})

	doc.Find(".third-level").Each(func(i int, wrapper *goquery.Selection) {
		level1 := classAt(wrapper, 1)
		wrapper.Find(".third-level-block").Each(func(j int, block *goquery.Selection) {
			parent := secondLevelCode(level1, classAt(block, 1))
			block.Find(".item").Each(func(k int, item *goquery.Selection) {
				levels.Third = append(levels.Third, domain.RawCategory{
					ID:         parent + "/" + strconv.Itoa(k),
					ParentCode: parent,
					Name:       strings.TrimSpace(item.Text()),
				})
			})
		})
	})

	if len(levels.First) == 0 {
		return domain.RawLevels{}, fmt.Errorf("%w: no level 1 categories found", domain.ErrData)
	}

	return levels, nil
}

// ParseListing extracts the reported total and the products of one listing page.
func (p *carrefourParser) ParseListing(html string) (*domain.ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	countText := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, doc.Find(".resultCount.number").First().Text())
	total, err := strconv.Atoi(countText)
	if err != nil {
		return nil, fmt.Errorf("%w: result count not found", domain.ErrData)
	}

	page := &domain.ListingPage{Total: total, Items: make([]domain.CatalogItem, 0)}

	var itemErr error
	doc.Find(".hot-recommend-item").EachWithBreak(func(i int, s *goquery.Selection) bool {
		info := s.Find(".box-img > a").First()
		pid := strings.TrimSpace(info.AttrOr("data-pid", ""))
		if pid == "" {
			itemErr = fmt.Errorf("%w: listing entry %d has no data-pid", domain.ErrData, i)
			return false
		}

		price, err := parsePrice(info.AttrOr("data-price", ""))
		if err != nil {
			itemErr = fmt.Errorf("product %s: %w", pid, err)
			return false
		}

		page.Items = append(page.Items, domain.CatalogItem{
			ID:       pid,
			Name:     info.AttrOr("data-name", ""),
			Price:    price,
			Unit:     info.AttrOr("data-variant", ""),
			Keywords: info.AttrOr("data-brand", "") + " " + info.AttrOr("data-category", ""),
		})
		return true
	})
	if itemErr != nil {
		return nil, itemErr
	}

	log.Debugf("Parsed listing page with %d items, total %d", len(page.Items), page.Total)
	return page, nil
}

// ParseProductPrice returns the price text of a detail page, unvalidated.
func (p *carrefourParser) ParseProductPrice(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	money := doc.Find("#product-details-form span.money").First()
	if money.Length() == 0 {
		return "", fmt.Errorf("%w: price not found", domain.ErrData)
	}
	return strings.TrimSpace(money.Text()), nil
}

func classAt(s *goquery.Selection, i int) string {
	classes := strings.Fields(s.AttrOr("class", ""))
	if i >= len(classes) {
		return ""
	}
	return classes[i]
}

func secondLevelCode(level1, id string) string {
	return level1 + ">" + id
}

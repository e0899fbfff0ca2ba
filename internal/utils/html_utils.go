package utils

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LazyImages 为 HTML 中的图片增加安全和懒加载属性
func LazyImages(htmlStr string) string {
	if htmlStr == "" || !strings.Contains(htmlStr, "<img") {
		return htmlStr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlStr
	}
	return out
}

// PageMeta is what a page says about itself in its <head>.
type PageMeta struct {
	Title       string
	Image       string
	Description string
}

// ExtractPageMeta reads OpenGraph/Twitter tags, falling back to <title>.
func ExtractPageMeta(r io.Reader) (PageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return PageMeta{}, err
	}

	meta := PageMeta{
		Title:       firstMeta(doc, "og:title", "twitter:title"),
		Image:       firstMeta(doc, "og:image", "og:image:url", "twitter:image"),
		Description: firstMeta(doc, "og:description", "description"),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return meta, nil
}

func firstMeta(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		sel := doc.Find(`meta[property="` + name + `"], meta[name="` + name + `"]`).First()
		if v, ok := sel.Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

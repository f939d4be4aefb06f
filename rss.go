package bookstore

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/bookstore/model"
)

const feedSize = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

func (a *App) renderRSS(c echo.Context, books []model.Book) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(books))
	for _, b := range books {
		link := BuildURL(base, "api", "books", b.ISBN)
		items = append(items, rssItem{
			Title:       b.Title,
			Link:        link,
			Description: fmt.Sprintf("%s. %s, %d, %d pages.", strings.Join(b.Authors, ", "), b.Publisher, b.Year, b.Pages),
			PubDate:     b.LastModified.Format(time.RFC1123Z),
			GUID:        link,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        base,
			Description: "Recently added and updated books",
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}

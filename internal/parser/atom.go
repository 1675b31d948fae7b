// Package parser parses YouTube WebSub notification bodies.
package parser

import (
	"encoding/xml"
	"fmt"
)

// AtomFeed represents a YouTube Atom feed notification. YouTube uses the
// Atom 1.0 format with custom YouTube namespaces and may carry multiple
// entries per delivery.
type AtomFeed struct {
	XMLName xml.Name       `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []AtomEntry    `xml:"entry"`
	Deleted []DeletedEntry `xml:"http://purl.org/atompub/tombstones/1.0 deleted-entry"`
}

// AtomEntry represents a video entry in the Atom feed. Published is kept as
// the raw feed string so downstream consumers own the parse-or-fallback
// decision.
type AtomEntry struct {
	VideoID   string   `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	ChannelID string   `xml:"http://www.youtube.com/xml/schemas/2015 channelId"`
	Title     string   `xml:"title"`
	Link      AtomLink `xml:"link"`
	Published string   `xml:"published"`
	Updated   string   `xml:"updated"`
}

// AtomLink represents a link element in the Atom feed.
type AtomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// DeletedEntry represents a deleted video notification.
type DeletedEntry struct {
	Ref  string `xml:"ref,attr"`
	When string `xml:"when,attr"`
}

// ParseFeed parses a YouTube Atom notification body. It returns an error
// only when the XML cannot be parsed at all; entry-level validation is the
// caller's job so one bad entry never fails the batch.
func ParseFeed(raw []byte) (*AtomFeed, error) {
	var feed AtomFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("unmarshal atom feed: %w", err)
	}
	return &feed, nil
}

// VideoURL returns the entry's link href, or a watch URL constructed from
// the video ID when the link is missing.
func (e *AtomEntry) VideoURL() string {
	if e.Link.Href != "" {
		return e.Link.Href
	}
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", e.VideoID)
}

// Package messaging is the boundary to the external chat collaborator.
// The core only supplies a contact handle and a pre-filled text; link
// construction lives entirely here.
package messaging

import "net/url"

// ChatLink produces a WhatsApp deep link for the given contact handle
// and pre-filled text. An empty handle yields an empty link.
func ChatLink(handle, text string) string {
	if handle == "" {
		return ""
	}
	link := "https://wa.me/" + url.PathEscape(handle)
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link
}

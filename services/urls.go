package services

import (
	"fmt"
	"net/url"
)

func ProfileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func PostURL(postID int64) string {
	return fmt.Sprintf("/posts/%d/", postID)
}

func GroupURL(slug string) string {
	return "/group/" + url.PathEscape(slug) + "/"
}

package ytvideodata

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var ErrInvalidVideoID = errors.New("invalid youtube video id")

var idRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseID extracts the video id from a bare id, a youtu.be link or a
// youtube.com link carrying a v query parameter.
func ParseID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if idRe.MatchString(input) {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return "", ErrInvalidVideoID
	}

	var id string
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		id = u.Query().Get("v")
		if id == "" {
			// /embed/<id> and /shorts/<id>
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) == 2 && (parts[0] == "embed" || parts[0] == "shorts") {
				id = parts[1]
			}
		}
	}

	if !idRe.MatchString(id) {
		return "", ErrInvalidVideoID
	}

	return id, nil
}

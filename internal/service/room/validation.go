package room

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var RoomCodeRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 64),
	validation.Match(regexp.MustCompile("^[a-zA-Z0-9_-]+$")),
}

var UsernameRule = []validation.Rule{
	validation.Length(0, 32),
}

var ChatContentRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 2000),
}

var ReplyToIdRule = []validation.Rule{
	is.UUIDv4,
}

package apisvc

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/validate"
)

// maxPasswordLength bounds passwords to what bcrypt accepts.
const maxPasswordLength = 72

// CreateUser is the body of a registration request.
type CreateUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *CreateUser) Validate() validate.Violations {
	return validate.Collect(
		validate.MinLength("name", in.Name, 1),
		validate.MaxLength("name", in.Name, 64),
		validate.Email("email", in.Email),
		validate.MinLength("password", in.Password, 8),
		validate.MaxLength("password", in.Password, maxPasswordLength),
	)
}

// LoginUser is the body of a login request.
type LoginUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *LoginUser) Validate() validate.Violations {
	return validate.Collect(
		validate.Email("email", in.Email),
		validate.MinLength("password", in.Password, 8),
	)
}

// Redirect is the optional body of a signout request.
type Redirect struct {
	URI *string `json:"uri"`
}

func (in *Redirect) Validate() validate.Violations {
	return validate.Collect(
		validate.Optional(in.URI, func(uri string) *validate.Violation {
			if !isLocalPath(uri) {
				return &validate.Violation{Field: "uri", Message: "must be an absolute path on this site"}
			}

			return nil
		}),
	)
}

// isLocalPath accepts only paths that browsers resolve on the current origin.
// Browsers read '\' as '/', so "/\host" would leave the site like "//host".
func isLocalPath(uri string) bool {
	if !strings.HasPrefix(uri, "/") || strings.HasPrefix(uri, "//") {
		return false
	}

	if strings.ContainsFunc(uri, func(r rune) bool { return r == '\\' || unicode.IsControl(r) }) {
		return false
	}

	u, err := url.Parse(uri)

	return err == nil && u.Scheme == "" && u.Host == "" && u.User == nil
}

// UserID addresses a user by path.
type UserID struct {
	ID int64 `path:"id"`
}

func (in *UserID) Validate() validate.Violations {
	return validate.Collect(validate.Min("id", in.ID, 1))
}

// DeleteUserOpt holds the query options of a user deletion.
type DeleteUserOpt struct {
	Thoroughly bool `query:"thoroughly"`
}

func (in *DeleteUserOpt) Validate() validate.Violations {
	return nil
}

// PostID addresses a post by path.
type PostID struct {
	ID int64 `path:"id"`
}

func (in *PostID) Validate() validate.Violations {
	return validate.Collect(validate.Min("id", in.ID, 1))
}

// CreatePost is the body of a post creation request.
type CreatePost struct {
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Category *domain.Category `json:"category"`
}

func (in *CreatePost) Validate() validate.Violations {
	return validate.Collect(
		validate.MinLength("title", in.Title, 1),
		validate.MaxLength("title", in.Title, 255),
		validate.MinLength("text", in.Text, 1),
		validate.Optional(in.Category, func(c domain.Category) *validate.Violation {
			return validate.OneOf("category", c, domain.CategoryFeed, domain.CategoryStory)
		}),
	)
}

// UploadID addresses an upload by path.
type UploadID struct {
	ID string `path:"id"`
}

func (in *UploadID) Validate() validate.Violations {
	return validate.Collect(
		validate.Required("id", in.ID),
		validate.MaxLength("id", in.ID, 128),
	)
}

// UploadOpt holds the query options of an upload download.
type UploadOpt struct {
	Preview bool `query:"preview"`
}

func (in *UploadOpt) Validate() validate.Violations {
	return nil
}

package domain

import (
	"fmt"
	"slices"
)

// Shelf is a named reading list on a user profile.
type Shelf string

const (
	ShelfWantToRead Shelf = "want_to_read"
	ShelfHaveRead   Shelf = "have_read"
)

// ParseShelf accepts the stored name or the GraphQL enum spelling.
func ParseShelf(s string) (Shelf, error) {
	switch s {
	case string(ShelfWantToRead), "WANT_TO_READ":
		return ShelfWantToRead, nil
	case string(ShelfHaveRead), "HAVE_READ":
		return ShelfHaveRead, nil
	}
	return "", fmt.Errorf("unknown shelf %q", s)
}

// Other returns the opposite shelf.
func (s Shelf) Other() Shelf {
	if s == ShelfWantToRead {
		return ShelfHaveRead
	}
	return ShelfWantToRead
}

// User is a reader profile. Secret is the opaque bearer token that
// identifies the user to the API.
type User struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Secret     string   `json:"-"`
	WantToRead []string `json:"wantToRead"`
	HaveRead   []string `json:"haveRead"`
}

// ShelfBooks returns the book ids on shelf.
func (u *User) ShelfBooks(s Shelf) []string {
	if s == ShelfHaveRead {
		return u.HaveRead
	}
	return u.WantToRead
}

// Shelve puts bookID on s and takes it off the other shelf.
func (u *User) Shelve(bookID string, s Shelf) {
	u.Unshelve(bookID, s.Other())
	list := u.ShelfBooks(s)
	if slices.Contains(list, bookID) {
		return
	}
	u.setShelf(s, append(list, bookID))
}

// Unshelve removes bookID from s.
func (u *User) Unshelve(bookID string, s Shelf) {
	u.setShelf(s, slices.DeleteFunc(slices.Clone(u.ShelfBooks(s)), func(id string) bool {
		return id == bookID
	}))
}

func (u *User) setShelf(s Shelf, ids []string) {
	if s == ShelfHaveRead {
		u.HaveRead = ids
		return
	}
	u.WantToRead = ids
}

// Package memory implements the repositories with mutex-guarded maps. It
// backs the service tests and STORAGE_BACKEND=memory.
package memory

import (
	"slices"

	"github.com/utafrali/bookcatalog/services/catalog/internal/domain"
)

func cloneBook(b domain.Book) domain.Book {
	b.Authors = slices.Clone(b.Authors)
	b.Genres = slices.Clone(b.Genres)
	if b.PublishDate != nil {
		d := *b.PublishDate
		b.PublishDate = &d
	}
	if b.Series != nil {
		s := *b.Series
		b.Series = &s
	}
	return b
}

func cloneUser(u domain.User) domain.User {
	u.WantToRead = slices.Clone(u.WantToRead)
	u.HaveRead = slices.Clone(u.HaveRead)
	return u
}

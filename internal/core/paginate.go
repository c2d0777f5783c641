package core

// Page is one slice of a list plus the paging metadata a list view needs.
type Page struct {
	Items       []Transaction
	TotalPages  int
	CurrentPage int
	TotalItems  int
}

// Paginate slices list into pages of pageSize and returns page pageNumber
// (1-based). An empty list has zero pages. A page number outside
// 1..TotalPages yields no items.
func Paginate(list []Transaction, pageSize, pageNumber int) (Page, error) {
	if pageSize < 1 {
		return Page{}, ErrInvalidPageSize
	}
	n := len(list)
	pages := n / pageSize
	if n%pageSize != 0 {
		pages++
	}
	p := Page{
		Items:       []Transaction{},
		TotalPages:  pages,
		CurrentPage: pageNumber,
		TotalItems:  n,
	}
	if pageNumber < 1 || pageNumber > p.TotalPages {
		return p, nil
	}
	start := (pageNumber - 1) * pageSize
	end := start + min(pageSize, n-start)
	p.Items = append(p.Items, list[start:end]...)
	return p, nil
}

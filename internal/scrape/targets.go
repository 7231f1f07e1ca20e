package scrape

// Canonical target descriptors. Column order here is the column order
// used for persistence and flat-file export.

// BooksTarget describes the books category.
func BooksTarget(urls []string) Target {
	return Target{
		Name:    "books",
		Table:   "books",
		Columns: []string{"title", "price", "rating", "availability", "category", "url", "description"},
		URLs:    urls,
	}
}

// ProductsTarget describes the products category.
func ProductsTarget(urls []string) Target {
	return Target{
		Name:    "products",
		Table:   "products",
		Columns: []string{"name", "price", "description", "rating", "reviews", "category", "url"},
		URLs:    urls,
	}
}

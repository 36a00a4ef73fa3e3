package http

import "horizonx-console/internal/domain"

// RedirectNavigator records where the login view wants to go; the handler
// turns that into a 303 once the view is done.
type RedirectNavigator struct {
	dest    domain.Destination
	visited bool
}

func (n *RedirectNavigator) Navigate(dest domain.Destination) {
	n.dest = dest
	n.visited = true
}

func (n *RedirectNavigator) Location() (string, bool) {
	if !n.visited {
		return "", false
	}
	return n.dest.Path(), true
}

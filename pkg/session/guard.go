package session

// Route is a navigation target.
type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
}

var (
	HomeRoute     = Route{Name: "home", Path: "/", RequiresAuth: true}
	LoginRoute    = Route{Name: "login", Path: "/login"}
	SignupRoute   = Route{Name: "signup", Path: "/signup"}
	RegisterRoute = Route{Name: "register", Path: "/register"}
)

// Redirect decides where navigating to route should land instead. It returns
// "" when the navigation may proceed.
func Redirect(route Route, authenticated bool) string {
	switch {
	case route.RequiresAuth && !authenticated:
		return LoginRoute.Path
	case route.Name == LoginRoute.Name && authenticated:
		return HomeRoute.Path
	}
	return ""
}

// Redirect is the package function applied to the current session.
func (s *State) Redirect(route Route) string {
	return Redirect(route, s.IsAuthenticated())
}

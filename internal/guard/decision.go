package guard

type Route string

const (
	RouteHome            Route = "home"
	RouteLanding         Route = "landing"
	RouteChat            Route = "chat"
	RouteProfile         Route = "profile"
	RouteCheckout        Route = "checkout"
	RouteCheckoutSuccess Route = "checkout-success"
	RouteTerms           Route = "terms"
	RoutePrivacy         Route = "privacy"
	RouteCookies         Route = "cookies"
	RouteLogout          Route = "logout"
)

// public routes never wait for the auth state
var publicRoutes = map[Route]bool{
	RouteTerms:           true,
	RoutePrivacy:         true,
	RouteCookies:         true,
	RouteCheckoutSuccess: true,
}

type Action string

const (
	ActionProceed  Action = "proceed"
	ActionRedirect Action = "redirect"
	// ActionReload asks the client to drop everything and reload on Route.
	ActionReload Action = "reload"
)

// Decision tells the client router what to do with a navigation.
type Decision struct {
	Action Action            `json:"action"`
	Route  Route             `json:"route"`
	Params map[string]string `json:"params,omitempty"`
}

func Proceed(route Route, params map[string]string) Decision {
	return Decision{Action: ActionProceed, Route: route, Params: params}
}

func RedirectTo(route Route, params map[string]string) Decision {
	return Decision{Action: ActionRedirect, Route: route, Params: params}
}

package devapi

import "net/http"

func (s *Server) initRoutes() {
	public := s.publicMiddleware()
	protected := s.protectedMiddleware()
	b := s.basePath

	s.RegisterRouteFunc("OPTIONS "+b+"/", ChainMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.CorsMiddleware))

	// AUTH
	s.RegisterRouteFunc("POST "+b+"/auth/login", ChainMiddleware(s.LoginHandler(), public...))
	s.RegisterRouteFunc("POST "+b+"/auth/register", ChainMiddleware(s.RegisterHandler(), public...))
	s.RegisterRouteFunc("POST "+b+"/auth/refresh", ChainMiddleware(s.RefreshHandler(), public...))
	s.RegisterRouteFunc("POST "+b+"/auth/logout", ChainMiddleware(s.LogoutHandler(), protected...))
	s.RegisterRouteFunc("GET "+b+"/user/profile", ChainMiddleware(s.ProfileHandler(), protected...))

	// CLIENTS
	s.RegisterRouteFunc("POST "+b+"/clients", ChainMiddleware(createHandler(s, s.clients, s.clientLimit), protected...))
	s.RegisterRouteFunc("GET "+b+"/clients", ChainMiddleware(listHandler(s.clients, "clients"), protected...))
	s.RegisterRouteFunc("GET "+b+"/clients/{id}", ChainMiddleware(getHandler(s.clients), protected...))
	s.RegisterRouteFunc("PUT "+b+"/clients/{id}", ChainMiddleware(updateHandler(s, s.clients), protected...))
	s.RegisterRouteFunc("DELETE "+b+"/clients/{id}", ChainMiddleware(deleteHandler(s.clients), protected...))

	// TASKS
	s.RegisterRouteFunc("POST "+b+"/tasks", ChainMiddleware(createHandler(s, s.tasks, s.taskLimit), protected...))
	s.RegisterRouteFunc("GET "+b+"/tasks", ChainMiddleware(listHandler(s.tasks, "tasks"), protected...))
	s.RegisterRouteFunc("GET "+b+"/tasks/{id}", ChainMiddleware(getHandler(s.tasks), protected...))
	s.RegisterRouteFunc("PUT "+b+"/tasks/{id}", ChainMiddleware(updateHandler(s, s.tasks), protected...))
	s.RegisterRouteFunc("DELETE "+b+"/tasks/{id}", ChainMiddleware(deleteHandler(s.tasks), protected...))

	// PAYMENTS
	s.RegisterRouteFunc("POST "+b+"/payments", ChainMiddleware(createHandler(s, s.payments, nil), protected...))
	s.RegisterRouteFunc("GET "+b+"/payments", ChainMiddleware(listHandler(s.payments, "payments"), protected...))
	s.RegisterRouteFunc("GET "+b+"/payments/{id}", ChainMiddleware(getHandler(s.payments), protected...))
	s.RegisterRouteFunc("PUT "+b+"/payments/{id}", ChainMiddleware(updateHandler(s, s.payments), protected...))
	s.RegisterRouteFunc("DELETE "+b+"/payments/{id}", ChainMiddleware(deleteHandler(s.payments), protected...))
	s.RegisterRouteFunc("GET "+b+"/payments/client/{clientID}", ChainMiddleware(s.PaymentsByClientHandler(), protected...))
}

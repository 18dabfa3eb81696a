package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/idena-network/idena-wallet-connect/core"
	"github.com/idena-network/idena-wallet-connect/types"
	"github.com/idena-network/idena-wallet-connect/units"
	log "github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	apiVersion     = "v1"
	maxRequestSize = 1 << 20
)

type Server struct {
	port         int
	sessions     core.SessionManager
	orchestrator core.Orchestrator
	exponent     int32
	limiter      *ipLimiter
	gatherer     prometheus.Gatherer
	mutex        sync.Mutex
	counter      int
	httpServer   *http.Server
}

type Option func(*Server)

func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = newIpLimiter(rps, burst)
	}
}

func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

func WithExponent(exponent int32) Option {
	return func(s *Server) {
		s.exponent = exponent
	}
}

func NewServer(port int, sessions core.SessionManager, orchestrator core.Orchestrator, options ...Option) *Server {
	s := &Server{
		port:         port,
		sessions:     sessions,
		orchestrator: orchestrator,
		exponent:     units.DefaultExponent,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.port)
	httpServer := &http.Server{Addr: addr, Handler: s.Handler()}
	s.httpServer = httpServer
	log.Info(fmt.Sprintf("Starting server on %v", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(err)
	}
}

func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(context.Background()); err != nil {
		panic(err)
	}
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	if s.gatherer != nil {
		router.Path("/metrics").Handler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	api := router.PathPrefix("/{version}").Subrouter()
	api.Use(versionFilter)
	s.initRouter(api)
	headersOk := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "OPTIONS"})
	return handlers.CORS(originsOk, headersOk, methodsOk)(s.requestFilter(router))
}

func (s *Server) requestFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqId := s.generateReqId()
		ip := GetIP(r)
		log.Debug(fmt.Sprintf("Got request %v, url: %v, from: %v", reqId, r.URL, ip))
		defer log.Debug(fmt.Sprintf("Completed request %v", reqId))
		if !s.limiter.Allow(ip, time.Now()) {
			log.Warn(fmt.Sprintf("Request %v from %v is rate limited", reqId, ip))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		err := r.ParseForm()
		if err != nil {
			log.Error(fmt.Sprintf("Unable to parse request %v: %v", reqId, err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.URL.Path = strings.ToLower(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func versionFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["version"] != apiVersion {
			writeResponse(w, nil, errors.New("unsupported version"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) generateReqId() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := s.counter
	s.counter++
	return id
}

func GetIP(r *http.Request) string {
	header := r.Header.Get("X-Forwarded-For")
	if len(header) > 0 {
		return strings.Split(header, ", ")[0]
	}
	if strings.Contains(r.RemoteAddr, ":") {
		return strings.Split(r.RemoteAddr, ":")[0]
	}
	return r.RemoteAddr
}

func (s *Server) initRouter(router *mux.Router) {
	router.Path("/session").HandlerFunc(s.session).Methods("GET")
	router.Path("/connect").HandlerFunc(s.connect).Methods("POST")
	router.Path("/disconnect").HandlerFunc(s.disconnect).Methods("POST")
	router.Path("/clear-session").HandlerFunc(s.clearSession).Methods("POST")
	router.Path("/personal-sign").HandlerFunc(s.personalSign).Methods("POST")
	router.Path("/send-transaction").HandlerFunc(s.sendTransaction).Methods("POST")
	router.Path("/request").HandlerFunc(s.request).Methods("POST")
	router.Path("/to-base-units").HandlerFunc(s.toBaseUnits).Methods("POST")
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, sessionResponse(s.sessions.Session()), nil)
}

func sessionResponse(session types.Session) types.SessionResponse {
	return types.SessionResponse{
		State:   session.State,
		Account: session.Account,
		ChainId: session.ChainId,
	}
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Connect(r.Context())
	if err != nil {
		writeResponse(w, nil, err)
		return
	}
	writeResponse(w, types.ConnectResponse{
		Account: session.Account,
		ChainId: session.ChainId,
	}, nil)
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.Disconnect(r.Context())
	writeResponse(w, types.DisconnectResponse{Disconnected: err == nil}, err)
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearSession()
	writeResponse(w, sessionResponse(s.sessions.Session()), nil)
}

func (s *Server) personalSign(w http.ResponseWriter, r *http.Request) {
	request := types.PersonalSignHttpRequest{}
	if err := readRequest(w, r, &request); err != nil {
		writeResponse(w, nil, err)
		return
	}
	s.dispatch(w, r, types.PersonalSignRequest{
		Message: request.Message,
		Address: request.Address,
	}, request.ConnectWith)
}

func (s *Server) sendTransaction(w http.ResponseWriter, r *http.Request) {
	request := types.SendTransactionHttpRequest{}
	if err := readRequest(w, r, &request); err != nil {
		writeResponse(w, nil, err)
		return
	}
	s.dispatch(w, r, types.SendTransactionRequest{Intent: types.TransactionIntent{
		To:    request.To,
		From:  request.From,
		Value: request.Value,
		Data:  request.Data,
	}}, request.ConnectWith)
}

func (s *Server) request(w http.ResponseWriter, r *http.Request) {
	request := types.RpcHttpRequest{}
	if err := readRequest(w, r, &request); err != nil {
		writeResponse(w, nil, err)
		return
	}
	s.dispatch(w, r, types.RPCRequest{
		Name:   request.Method,
		Params: request.Params,
	}, request.ConnectWith)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, request types.Request, connectWith bool) {
	var result string
	var err error
	if connectWith {
		result, err = s.orchestrator.ConnectWith(r.Context(), request)
	} else {
		result, err = s.orchestrator.Dispatch(r.Context(), request)
	}
	if err != nil {
		writeResponse(w, nil, err)
		return
	}
	writeResponse(w, types.DispatchResponse{Result: result}, nil)
}

func (s *Server) toBaseUnits(w http.ResponseWriter, r *http.Request) {
	request := types.ToBaseUnitsRequest{}
	if err := readRequest(w, r, &request); err != nil {
		writeResponse(w, nil, err)
		return
	}
	exponent := s.exponent
	if request.Exponent != nil {
		exponent = *request.Exponent
	}
	value, err := units.ToBaseUnits(request.Value, exponent)
	if err != nil {
		writeResponse(w, nil, err)
		return
	}
	writeResponse(w, types.ToBaseUnitsResponse{Value: value}, nil)
}

func readRequest(w http.ResponseWriter, r *http.Request, request interface{}) error {
	body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		return types.WrapFailure(types.InvalidRequest, err)
	}
	if err := json.Unmarshal(body, request); err != nil {
		return types.WrapFailure(types.InvalidRequest, err)
	}
	return nil
}

func writeResponse(w http.ResponseWriter, result interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(getResponse(result, err))
	if err != nil {
		log.Error(fmt.Sprintf("Unable to write response: %v", err))
		return
	}
}

func getResponse(result interface{}, err error) types.Response {
	if err != nil {
		return getErrorResponse(err)
	}
	return types.Response{
		Success: true,
		Data:    result,
	}
}

func getErrorResponse(err error) types.Response {
	resp := getErrorMsgResponse(err.Error())
	var failure *types.Failure
	if errors.As(err, &failure) {
		resp.Kind = failure.Kind.String()
	}
	return resp
}

func getErrorMsgResponse(errMsg string) types.Response {
	return types.Response{
		Error: errMsg,
	}
}

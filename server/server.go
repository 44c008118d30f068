package server

import "net/http"

// New はWebSocketエンドポイントとヘルスチェックを束ねたHTTPサーバーを組み立てる。
func New(addr string, wsHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Server is running"))
	})
	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sebest/xff"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-keytune/client"
	"github.com/cwbudde/algo-keytune/internal/metrics"
)

type emptyResponse struct{}

type wavResponse struct {
	data     []byte
	filename string
	shift    float64
}

type handler struct {
	h          func(r *http.Request, entry *logrus.Entry) interface{}
	action     string
	reqCounter *requestCounter
	maxBody    int64
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	raddr := xff.GetRemoteAddr(r)
	host, _, err := net.SplitHostPort(raddr)
	if err != nil {
		host = raddr
	}
	r.RemoteAddr = host

	contextLog := logrus.WithFields(logrus.Fields{
		"method":        r.Method,
		"resource":      r.URL.Path,
		"contentType":   r.Header.Get("Content-Type"),
		"contentLength": r.ContentLength,
		"requestId":     h.reqCounter.GetNextId(),
		"remoteAddr":    r.RemoteAddr,
	})
	contextLog.Info("Received request")

	w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, "+client.SessionHeader)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", client.ShiftHeader+", Content-Disposition")
	w.Header().Set("Server", "keytune")

	if h.maxBody > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	metrics.HttpRequests.With(prometheus.Labels{
		"action": h.action,
		"method": r.Method,
	}).Inc()

	res := h.h(r, contextLog)
	if res == nil {
		res = &emptyResponse{}
	}

	statusCode := http.StatusOK
	defer func() {
		metrics.HttpResponses.With(prometheus.Labels{
			"action":     h.action,
			"method":     r.Method,
			"statusCode": strconv.Itoa(statusCode),
		}).Inc()
		metrics.HttpResponseTime.With(prometheus.Labels{
			"action": h.action,
			"method": r.Method,
		}).Observe(time.Since(started).Seconds())
	}()

	switch result := res.(type) {
	case *client.ErrorResponse:
		statusCode = result.Status
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		if statusCode < 500 {
			contextLog.WithField("errcode", result.Code).Warn(result.Message)
		}
	case *wavResponse:
		contextLog.Info(fmt.Sprintf("Replying with %d bytes of audio (shift %.3f)", len(result.data), result.shift))
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Length", strconv.Itoa(len(result.data)))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.filename))
		w.Header().Set(client.ShiftHeader, strconv.FormatFloat(result.shift, 'f', -1, 64))
		w.WriteHeader(statusCode)
		_, _ = w.Write(result.data)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(res); err != nil {
		contextLog.WithError(err).Error("Failed to write response")
	}
}

package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-keytune/audioio"
	"github.com/cwbudde/algo-keytune/client"
	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/dsp/pitchclass"
	"github.com/cwbudde/algo-keytune/internal/metrics"
	"github.com/cwbudde/algo-keytune/internal/session"
	"github.com/cwbudde/algo-keytune/keytune"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

func emptyHandler(r *http.Request, log *logrus.Entry) interface{} {
	return &emptyResponse{}
}

func healthHandler(r *http.Request, log *logrus.Entry) interface{} {
	return &client.HealthResponse{OK: true}
}

func notFoundHandler(r *http.Request, log *logrus.Entry) interface{} {
	return client.NotFoundError()
}

func methodNotAllowedHandler(r *http.Request, log *logrus.Entry) interface{} {
	return client.MethodNotAllowed()
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func (s *Server) analyze(r *http.Request, log *logrus.Entry) interface{} {
	if r.ContentLength > s.maxUpload {
		return client.RequestTooLarge()
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		switch {
		case isTooLarge(err):
			return client.RequestTooLarge()
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return client.NoFileProvided()
		default:
			log.WithError(err).Warn("Unreadable multipart body")
			return client.BadRequest("Could not read the upload.")
		}
	}
	//goland:noinspection GoUnhandledErrorResult
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		// Browsers send an empty file input as a plain field.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			return client.NoFileSelected()
		}
		return client.NoFileProvided()
	}
	header := files[0]
	if header.Filename == "" {
		return client.NoFileSelected()
	}

	f, err := header.Open()
	if err != nil {
		log.WithError(err).Error("Failed to open upload")
		return client.InternalServerError("Could not read the upload.")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		log.WithError(errors.Wrap(err, "reading upload")).Error("Failed to read upload")
		return client.InternalServerError("Could not read the upload.")
	}

	log = log.WithFields(logrus.Fields{
		"filename": header.Filename,
		"size":     humanize.Bytes(uint64(len(data))),
	})

	buf, info, err := audioio.Decode(data, s.channels)
	if err != nil {
		log.WithError(err).Info("Upload is not usable audio")
		return client.FromError(err)
	}
	log.WithFields(logrus.Fields{
		"contentType": info.ContentType,
		"sampleRate":  info.SampleRate,
		"channels":    info.Channels,
		"duration":    info.Duration.String(),
	}).Debug("Decoded upload")

	ctx, cancel := s.requestContext(r)
	defer cancel()

	var (
		result     keytune.AnalysisResult
		analyzeErr error
	)
	started := time.Now()
	if err := s.pool.do(ctx, func() { result, analyzeErr = s.tuner.Analyze(buf) }); err != nil {
		log.WithError(err).Error("Analysis did not finish")
		return client.InternalServerError("Analysis timed out.")
	}
	if analyzeErr != nil {
		log.WithError(analyzeErr).Info("Analysis failed")
		return client.FromError(analyzeErr)
	}
	observe("analyze", started, buf)
	metrics.DetectedKeys.With(prometheus.Labels{"key": result.Key.String()}).Inc()

	entry := session.NewEntry(buf, result, header.Filename)
	if err := s.store.Put(ctx, entry); err != nil {
		if errors.Is(err, session.ErrTooLarge) {
			log.WithError(err).Warn("Clip too large to keep")
			return client.RequestTooLarge()
		}
		log.WithError(err).Error("Failed to store session")
		return client.InternalServerError("Could not store the analysis.")
	}

	log.WithFields(logrus.Fields{
		"key":     result.Key.String(),
		"tuning":  fmt.Sprintf("%.2f", result.TuningOffsetCents),
		"session": entry.Token,
	}).Info("Analyzed upload")

	return &client.AnalyzeResponse{
		Key:          result.Key.String(),
		TuningOffset: result.TuningOffsetCents,
		Session:      entry.Token,
		SampleRate:   buf.SampleRate(),
		Duration:     buf.Duration().Seconds(),
		Chroma:       result.Chroma,
		Filename:     header.Filename,
	}
}

func (s *Server) keySwitch(r *http.Request, log *logrus.Entry) interface{} {
	token := r.FormValue("session")
	if token == "" {
		token = r.Header.Get(client.SessionHeader)
	}
	if token == "" {
		return client.NotAnalyzed()
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	entry, err := s.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return client.NotAnalyzed()
		}
		log.WithError(err).Error("Failed to load session")
		return client.InternalServerError("Could not load the analysis.")
	}

	desired := r.FormValue("desired_key")
	if _, err := pitchclass.Parse(desired); err != nil {
		return client.InvalidKey()
	}
	log = log.WithFields(logrus.Fields{"session": token, "desiredKey": desired})

	var (
		out       buffer.Buffer
		shift     float64
		retuneErr error
	)
	started := time.Now()
	in := entry.Buffer()
	if err := s.pool.do(ctx, func() { out, shift, retuneErr = s.tuner.Retune(in, &entry.Result, desired) }); err != nil {
		log.WithError(err).Error("Retune did not finish")
		return client.InternalServerError("Retuning timed out.")
	}
	if retuneErr != nil {
		if keytune.KindOf(retuneErr) == keytune.KindUnknown {
			log.WithError(retuneErr).Error("Retune failed")
		}
		return client.FromError(retuneErr)
	}
	observe("retune", started, in)

	data, err := audioio.EncodeWAVBytes(out)
	if err != nil {
		log.WithError(err).Error("Failed to encode audio")
		return client.InternalServerError("Could not encode the audio.")
	}

	log.WithField("shift", shift).Info("Retuned clip")
	return &wavResponse{data: data, filename: "fixed.wav", shift: shift}
}

func observe(operation string, started time.Time, buf buffer.Buffer) {
	labels := prometheus.Labels{"operation": operation}
	metrics.AnalysisDuration.With(labels).Observe(time.Since(started).Seconds())
	metrics.AudioSeconds.With(labels).Add(buf.Duration().Seconds())
}

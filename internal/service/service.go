// Package service wires image sourcing, model provisioning and recognition
// into the HTTP and NATS surfaces of the server.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/textrec/text-recognition-service/internal/config"
	"github.com/textrec/text-recognition-service/internal/imagesource"
	"github.com/textrec/text-recognition-service/internal/provision"
	"github.com/textrec/text-recognition-service/internal/resultcache"
	"github.com/textrec/text-recognition-service/internal/scandoc"
	"github.com/textrec/text-recognition-service/pkg/ocr"
	"github.com/textrec/text-recognition-service/pkg/overlay"
	"github.com/textrec/text-recognition-service/pkg/textnorm"
)

type RequestParams struct {
	Url string `form:"url" json:"url"`
	// Ignore cached record
	NoCache bool `form:"noCache" json:"noCache"`
	// Send metadata headers only, ignoring content
	Silent bool `form:"silent" json:"silent"`
	// Include word highlight shapes in the JSON response
	Overlay bool `form:"overlay" json:"overlay"`
}

// PageResponse is one page of a recognition response.
type PageResponse struct {
	Page   int                 `json:"page"`
	Result *ocr.RecognizedText `json:"result"`
	Shapes []overlay.Shape     `json:"shapes,omitempty"`
}

// RecognitionResponse is the JSON envelope returned (and cached) for every
// recognized input. Text is the flattened content of all pages.
type RecognitionResponse struct {
	Origin string         `json:"origin,omitempty"`
	Mime   string         `json:"mime,omitempty"`
	Engine string         `json:"engine,omitempty"`
	Pages  []PageResponse `json:"pages"`
	Text   string         `json:"text"`
}

type Service struct {
	cache              resultcache.Cache
	source             *imagesource.Source
	docs               *scandoc.Processor
	models             *provision.Manager
	log                *slog.Logger
	httpClient         *http.Client
	cacheNop           bool
	postprocessResults chan resultcache.CachedResult
	trsConfig          *config.TrsConfig
	jobs               *JobManager
}

const lastModified string = "last-modified"

func New(config *config.TrsConfig, source *imagesource.Source, docs *scandoc.Processor, models *provision.Manager, cache resultcache.Cache, logger *slog.Logger, httpClient *http.Client) *Service {
	postprocessResults := make(chan resultcache.CachedResult, 100)
	s := &Service{
		cache:              cache,
		source:             source,
		docs:               docs,
		models:             models,
		log:                logger,
		postprocessResults: postprocessResults,
		trsConfig:          config,
		httpClient:         httpClient,
	}

	if httpClient == nil {
		s.httpClient = http.DefaultClient
	}
	if logger == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	_, s.cacheNop = cache.(*resultcache.NopCache)
	s.jobs = newJobManager(s, config.JobWorkers)
	go s.saveResults()
	return s
}

// saveResults drains the postprocess channel, persisting finished results in
// the cache.
func (s *Service) saveResults() {
	for res := range s.postprocessResults {
		if s.cacheNop {
			continue
		}
		for i := 0; i <= 5; i++ {
			info, err := s.cache.Save(res)
			if err == nil {
				s.log.Info("Saved recognition result in NATS object store bucket", "key", *res.Key, "chunks", info.Chunks, "size", info.Size)
				break
			}
			s.log.Warn("Could not save result to cache", "retries", i, "key", *res.Key)
		}
	}
}

// RecognizeBody handles POST requests carrying the image or document as the
// request body. Results of previous identical uploads are served from cache,
// keyed by content digest.
func (s *Service) RecognizeBody(c *gin.Context) {
	var params RequestParams
	params.NoCache = c.Query("noCache") != "" || c.Query("nocache") != ""
	params.Overlay = c.Query("overlay") != ""
	in, err := s.source.FromStream(c.Request.Body, c.Request.ContentLength, "POST request")
	if err != nil {
		s.log.Error("Error parsing request body", "err", err)
		c.String(statusFor(err), err.Error())
		return
	}
	key := resultcache.Digest(in.Data)
	if !params.NoCache && !s.cacheNop {
		if cached, ok := s.cachedResponse(key); ok {
			s.log.Debug("Serving result from cache", "key", key)
			s.writeResponse(c, cached, params, nil)
			return
		}
	}
	res, err := s.recognizeInput(c.Request.Context(), in, params)
	if err != nil {
		s.log.Error("Recognition failed", "origin", in.Origin, "err", err)
		c.String(statusFor(err), err.Error())
		return
	}
	metadata := resultMetadata(res, nil)
	s.writeResponse(c, res, params, metadata)
	s.enqueueSave(key, res, metadata)
}

// RecognizeRemote handles GET and HEAD requests pointing the service at a
// remote file.
func (s *Service) RecognizeRemote(c *gin.Context) {
	var params RequestParams
	q := c.Request.URL.Query()
	params.NoCache = q.Has("noCache") || q.Has("nocache")
	params.Silent = q.Has("silent")
	params.Overlay = q.Has("overlay")
	if c.Request.Method == http.MethodHead {
		params.Silent = true
	}
	url := q.Get("url")
	if !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
		c.String(http.StatusBadRequest, fmt.Sprintf("not a valid HTTP(S) URL: %s", url))
		return
	}
	params.Url = url

	status, err := s.FromUrl(c, params)
	if err != nil {
		s.log.Error("Recognizing remote file failed", "status", status, "err", err)
		c.String(status, err.Error())
	}
}

// FromUrl fetches the file behind params.Url, recognizes it and writes the
// response. A conditional GET is issued when a cached result exists; on 304
// the cached result is served without running OCR again.
func (s *Service) FromUrl(c *gin.Context, params RequestParams) (status int, err error) {
	url := params.Url
	noCache := params.NoCache || s.cacheNop
	response, metadata, err := s.fetch(c.Request.Context(), url, noCache)
	if err != nil {
		s.log.Error("Error fetching", "err", err, "url", url)
		return http.StatusBadRequest, err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotModified {
		s.log.Debug("URL has not been modified. Result will be served from cache", "url", url, "etag", response.Header.Get("etag"), lastModified, response.Header.Get(lastModified))
		if cached, ok := s.cachedResponse(url); ok {
			s.writeResponse(c, cached, params, metadata)
			return http.StatusOK, nil
		}
		s.log.Warn("Could not receive result from NATS object store", "url", url)
		// We could not provide the client with a cached result.
		// Resume with recognizing the file (again)
	}
	if response.StatusCode >= 400 {
		return http.StatusBadGateway, fmt.Errorf("fetching %s: unexpected status %s", url, response.Status)
	}
	s.log.Debug("Start recognizing", "url", url, "content-length", response.ContentLength)
	in, err := s.source.FromStream(response.Body, response.ContentLength, url)
	if err != nil {
		s.log.Error("Reading remote file failed", "err", err, "url", url, "headers", response.Header)
		return statusFor(err), err
	}
	res, err := s.recognizeInput(c.Request.Context(), in, params)
	if err != nil {
		return statusFor(err), err
	}
	s.log.Debug("Finished recognizing", "url", url)
	metadata = resultMetadata(res, response)
	s.writeResponse(c, res, params, metadata)
	s.enqueueSave(url, res, metadata)
	return http.StatusOK, nil
}

// recognizeInput provisions the model if needed and runs recognition over
// one classified input.
func (s *Service) recognizeInput(ctx context.Context, in *imagesource.Input, params RequestParams) (*RecognitionResponse, error) {
	rec, err := s.models.EnsureReady(ctx)
	if err != nil {
		return nil, err
	}
	res := &RecognitionResponse{Origin: in.Origin, Mime: in.Mime, Engine: rec.EngineName()}
	switch in.Kind {
	case imagesource.KindImage:
		rt, err := rec.Recognize(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		res.Pages = []PageResponse{{Page: 1, Result: rt}}
	case imagesource.KindPDF:
		pages, err := s.docs.Recognize(ctx, rec, in.Data, in.Origin)
		if err != nil {
			return nil, err
		}
		for _, pr := range pages {
			res.Pages = append(res.Pages, PageResponse{Page: pr.Page, Result: pr.Result})
		}
	}
	res.Text = flatten(res.Pages)
	if params.Overlay {
		for i := range res.Pages {
			res.Pages[i].Shapes = overlay.Build(res.Pages[i].Result)
		}
	}
	return res, nil
}

// flatten joins the flat text of all pages, pages separated by a blank line.
func flatten(pages []PageResponse) string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Result.FlatText()
	}
	return strings.Join(texts, "\n\n")
}

// fetch issues the GET request for url, with cache validation headers when a
// cached result exists.
func (s *Service) fetch(ctx context.Context, url string, noCache bool) (*http.Response, resultcache.ResultMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.log.Error("Error when constructing GET request", "err", err, "url", url)
		return nil, nil, err
	}

	metadata := s.addCacheValidationHeaders(noCache, req, url)
	s.log.Debug("Issuing conditional GET request", "url", url, "headers", req.Header)

	response, err := s.httpClient.Do(req)
	if err != nil {
		return response, metadata, fmt.Errorf("fetching %s: %w", url, err)
	}
	return response, metadata, err
}

func (s *Service) addCacheValidationHeaders(noCache bool, req *http.Request, url string) resultcache.ResultMetadata {
	if !noCache {
		metadata, err := s.cache.GetMetadata(url)
		if err != nil {
			s.log.Error("Could not get metadata from NATS object store", "url", url, "err", err)
			return make(resultcache.ResultMetadata)
		}
		if etag, ok := metadata["etag"]; ok {
			req.Header.Add("If-None-Match", etag)
		}
		if lastMod, ok := metadata["http-last-modified"]; ok {
			req.Header.Add("If-Modified-Since", lastMod)
		}
		return metadata
	}
	return make(resultcache.ResultMetadata)
}

// cachedResponse loads and decodes a stored result.
func (s *Service) cachedResponse(key string) (*RecognitionResponse, bool) {
	var buf bytes.Buffer
	if err := s.cache.StreamResult(key, &buf); err != nil {
		s.log.Debug("No cached result", "key", key, "err", err)
		return nil, false
	}
	if buf.Len() == 0 {
		return nil, false
	}
	var res RecognitionResponse
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil {
		s.log.Warn("Could not decode cached result", "key", key, "err", err)
		return nil, false
	}
	return &res, true
}

// enqueueSave hands a finished result to the postprocess goroutine.
func (s *Service) enqueueSave(key string, res *RecognitionResponse, metadata resultcache.ResultMetadata) {
	if s.cacheNop {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		s.log.Error("Could not serialize result for caching", "key", key, "err", err)
		return
	}
	s.postprocessResults <- resultcache.CachedResult{
		Key:      &key,
		Metadata: &metadata,
		Payload:  payload,
	}
}

// writeResponse adds the metadata headers and writes the negotiated response
// body: JSON by default, the flattened text for text/plain accepts.
func (s *Service) writeResponse(c *gin.Context, res *RecognitionResponse, params RequestParams, metadata resultcache.ResultMetadata) {
	for k, v := range metadata {
		c.Header(k, v)
	}
	if params.Silent {
		c.Status(http.StatusOK)
		return
	}
	switch c.NegotiateFormat(gin.MIMEJSON, gin.MIMEPlain) {
	case gin.MIMEPlain:
		text := res.Text
		if s.trsConfig.Dehyphenate {
			if fixed, err := textnorm.DehyphenateString(text); err == nil {
				text = fixed
			} else {
				s.log.Warn("Dehyphenator failed", "err", err)
			}
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
	default:
		body, err := json.Marshal(res)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// resultMetadata derives the headers stored alongside a result. The HTTP
// validators of the origin response, when present, drive conditional GETs on
// later requests.
func resultMetadata(res *RecognitionResponse, response *http.Response) resultcache.ResultMetadata {
	metadata := make(resultcache.ResultMetadata)
	metadata["x-mimetype"] = res.Mime
	metadata["x-engine"] = res.Engine
	metadata["x-pages"] = fmt.Sprintf("%d", len(res.Pages))
	metadata["x-words"] = fmt.Sprintf("%d", wordCount(res))
	if response == nil {
		return metadata
	}
	if etag := response.Header.Get("etag"); etag != "" {
		metadata["etag"] = etag
	}
	if lastmod := response.Header.Get(lastModified); lastmod != "" {
		metadata["http-last-modified"] = lastmod
	}
	if contentLength := response.ContentLength; contentLength > 0 {
		metadata["http-content-length"] = fmt.Sprintf("%d", contentLength)
	}
	return metadata
}

func wordCount(res *RecognitionResponse) int {
	n := 0
	for _, p := range res.Pages {
		n += p.Result.WordCount()
	}
	return n
}

// statusFor maps processing errors to HTTP status codes.
func statusFor(err error) int {
	var provErr *ocr.ProvisioningError
	var decErr *ocr.DecodeError
	switch {
	case errors.Is(err, imagesource.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, imagesource.ErrZeroSize):
		return http.StatusUnprocessableEntity
	case errors.As(err, &provErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &decErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// client went away or gave up
		return 499
	}
	return http.StatusInternalServerError
}

// Health reports liveness plus the model and cache state.
func (s *Service) Health(c *gin.Context) {
	status := struct {
		Status string `json:"status"`
		Model  string `json:"model"`
		Engine string `json:"engine"`
		Langs  string `json:"langs"`
		Cache  bool   `json:"cache"`
	}{
		Status: "ok",
		Model:  s.models.State().String(),
		Engine: s.models.EngineName(),
		Langs:  s.trsConfig.TesseractLangs,
		Cache:  !s.cacheNop,
	}
	body, err := json.Marshal(status)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

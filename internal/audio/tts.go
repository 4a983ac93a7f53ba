// Package audio synthesizes narration to mp3 files and announces them to
// connected clients
package audio

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ullas/internal/lang"
	"ullas/internal/messaging"
	"ullas/internal/narration"
)

const (
	ttsRequestTimeout = 10 * time.Second
	googleTTSURL      = "https://translate.google.com/translate_tts"
	// Google TTS rejects long inputs
	maxTTSChars = 200
)

// Cue tells a client which file to play for an utterance
type Cue struct {
	UserID   int64         `json:"userId"`
	Text     string        `json:"text"`
	AudioURL string        `json:"audioUrl"`
	Lang     lang.Language `json:"lang"`
	Rate     float64       `json:"rate"`
}

// CueSubject is the NATS subject carrying a learner's cues
func CueSubject(userID int64) string {
	return "ullas.narration." + strconv.FormatInt(userID, 10)
}

// TTSService provides text-to-speech functionality
type TTSService struct {
	audioDir  string
	urlPrefix string
	endpoint  string
	client    *http.Client
	publisher messaging.Publisher
	logger    *slog.Logger
}

// Option configures a TTSService
type Option func(*TTSService)

// WithEndpoint overrides the Google Translate TTS endpoint
func WithEndpoint(u string) Option { return func(s *TTSService) { s.endpoint = u } }

// WithPublisher announces every synthesized utterance as a Cue
func WithPublisher(p messaging.Publisher) Option { return func(s *TTSService) { s.publisher = p } }

// WithURLPrefix sets the public path the audio directory is served under
func WithURLPrefix(p string) Option { return func(s *TTSService) { s.urlPrefix = strings.TrimRight(p, "/") } }

// NewTTSService creates a new TTS service writing into audioDir
func NewTTSService(audioDir string, logger *slog.Logger, opts ...Option) *TTSService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &TTSService{
		audioDir:  audioDir,
		urlPrefix: "/static/audio",
		endpoint:  googleTTSURL,
		client:    &http.Client{Timeout: ttsRequestTimeout},
		logger:    logger.With("component", "tts"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filename is the cache file for text in l. Devanagari text does not make
// portable file names, so the name is a digest.
func Filename(text string, l lang.Language) string {
	sum := sha1.Sum([]byte(string(l) + "\x00" + lang.Normalize(text)))
	return fmt.Sprintf("%s_%s.mp3", l, hex.EncodeToString(sum[:10]))
}

// GenerateAudioFile converts text to speech and saves it as MP3. Returns
// the file name (not the full path); an existing file is reused.
func (s *TTSService) GenerateAudioFile(ctx context.Context, text string, l lang.Language) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty text")
	}
	if !l.Valid() {
		l = lang.English
	}

	filename := Filename(text, l)
	path := filepath.Join(s.audioDir, filename)
	if _, err := os.Stat(path); err == nil {
		return filename, nil
	}

	if err := s.generateUsingGoogleTTS(ctx, text, l, path); err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}
	return filename, nil
}

// Play implements narration.Player: it makes sure the file exists, publishes
// a cue and returns the estimated speaking time
func (s *TTSService) Play(ctx context.Context, u narration.Utterance) (time.Duration, error) {
	filename, err := s.GenerateAudioFile(ctx, u.Text, u.Lang)
	if err != nil {
		return 0, err
	}

	if s.publisher != nil {
		cue := Cue{
			UserID:   u.UserID,
			Text:     u.Text,
			AudioURL: s.urlPrefix + "/" + filename,
			Lang:     u.Lang,
			Rate:     u.Rate,
		}
		if err := s.publisher.PublishJSON(ctx, CueSubject(u.UserID), cue); err != nil {
			s.logger.Warn("failed to publish cue", "user_id", u.UserID, "error", err)
		}
	}
	return narration.EstimateDuration(u.Text, u.Rate), nil
}

// generateUsingGoogleTTS uses Google Translate's text-to-speech API
func (s *TTSService) generateUsingGoogleTTS(ctx context.Context, text string, l lang.Language, outputPath string) error {
	if r := []rune(text); len(r) > maxTTSChars {
		text = string(r[:maxTTSChars])
	}

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", string(l))
	params.Set("client", "tw-ob")
	params.Set("textlen", strconv.Itoa(len([]rune(text))))

	ctx, cancel := context.WithTimeout(ctx, ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// required by Google
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}

	// write to a temp file so a concurrent reader never sees a partial mp3
	tmp, err := os.CreateTemp(s.audioDir, ".tts-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return os.Rename(tmp.Name(), outputPath)
}

// Prune deletes cached files older than maxAge and returns how many went
func (s *TTSService) Prune(maxAge time.Duration) (int, error) {
	files, err := os.ReadDir(s.audioDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read audio directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".mp3" {
			continue
		}
		info, err := file.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.audioDir, file.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

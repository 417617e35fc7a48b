package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"videofetch/pkg/models"
)

const progressInterval = 2 * time.Second

// Options configures every yt-dlp invocation
type Options struct {
	Executable    string
	MaxResolution int
	SocketTimeout time.Duration
	UserAgent     string
	Headers       map[string]string
	PlayerClient  string
	SkipManifests []string
}

// OptionsFromConfig builds Options from the application configuration
func OptionsFromConfig(cfg models.YtdlpConfig, executable string) Options {
	return Options{
		Executable:    executable,
		MaxResolution: cfg.MaxResolution,
		SocketTimeout: cfg.SocketTimeout,
		UserAgent:     cfg.UserAgent,
		Headers:       cfg.Headers,
		PlayerClient:  cfg.PlayerClient,
		SkipManifests: cfg.SkipManifests,
	}
}

// YtDlp is an Extractor backed by the yt-dlp executable
type YtDlp struct {
	opts   Options
	logger *slog.Logger
}

// NewYtDlp creates a yt-dlp backed extractor
func NewYtDlp(opts Options, logger *slog.Logger) *YtDlp {
	if logger == nil {
		logger = slog.Default()
	}
	return &YtDlp{opts: opts, logger: logger}
}

// ExtractInfo implements Extractor
func (y *YtDlp) ExtractInfo(ctx context.Context, url string) (*models.VideoInfo, error) {
	cmd := y.command().
		SkipDownload().
		DumpJSON()

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, wrapContext(ctx, NewError(KindFailed, errorText(res, err)))
	}

	info, err := infoFromResult(res)
	if err != nil {
		return nil, NewError(KindFailed, err.Error())
	}

	return info, nil
}

// Download implements Extractor
func (y *YtDlp) Download(ctx context.Context, url string, opts DownloadOptions) (string, error) {
	if opts.OutputTemplate == "" {
		return "", fmt.Errorf("output template is required")
	}

	cmd := y.command().
		Format(FormatSelector(y.opts.MaxResolution)).
		Output(opts.OutputTemplate).
		PrintJSON()

	if opts.Progress != nil {
		cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			p := Progress{
				DownloadedBytes: int(update.DownloadedBytes),
				TotalBytes:      int(update.TotalBytes),
			}
			if update.Info != nil && update.Info.Filename != nil {
				p.Filename = *update.Info.Filename
			}
			opts.Progress(p)
		})
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return "", wrapContext(ctx, NewError(KindFailed, errorText(res, err)))
	}

	infos, err := res.GetExtractedInfo()
	if err != nil || len(infos) == 0 || infos[0] == nil || infos[0].Filename == nil {
		y.logger.Debug("yt-dlp did not report an output filename", "url", url)
		return "", nil
	}

	return *infos[0].Filename, nil
}

// command returns a yt-dlp invocation with the shared option set applied
func (y *YtDlp) command() *ytdlp.Command {
	cmd := ytdlp.New().
		NoPlaylist().
		NoCheckCertificates().
		NoWarnings()

	if y.opts.Executable != "" {
		cmd.SetExecutable(y.opts.Executable)
	}

	if y.opts.SocketTimeout > 0 {
		cmd.SocketTimeout(y.opts.SocketTimeout.Seconds())
	}

	for _, header := range HeaderArgs(y.opts.UserAgent, y.opts.Headers) {
		cmd.AddHeaders(header)
	}

	if args := ExtractorArgs(y.opts.PlayerClient, y.opts.SkipManifests); args != "" {
		cmd.ExtractorArgs(args)
	}

	return cmd
}

// FormatSelector prefers the best stream at or below maxHeight and falls
// back to the lowest quality available
func FormatSelector(maxHeight int) string {
	if maxHeight <= 0 {
		return "best/worst"
	}
	return fmt.Sprintf("best[height<=%d]/worst", maxHeight)
}

// ExtractorArgs builds the youtube extractor arguments
func ExtractorArgs(playerClient string, skip []string) string {
	var parts []string
	if playerClient != "" {
		parts = append(parts, "player_client="+playerClient)
	}
	if len(skip) > 0 {
		parts = append(parts, "skip="+strings.Join(skip, ","))
	}
	if len(parts) == 0 {
		return ""
	}
	return "youtube:" + strings.Join(parts, ";")
}

// HeaderArgs returns --add-headers values in a stable order, User-Agent first
func HeaderArgs(userAgent string, headers map[string]string) []string {
	var out []string
	if userAgent != "" {
		out = append(out, "User-Agent:"+userAgent)
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		if strings.EqualFold(k, "User-Agent") && userAgent != "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		out = append(out, k+":"+headers[k])
	}
	return out
}

// infoFromResult maps the first extracted info object of a run
func infoFromResult(res *ytdlp.Result) (*models.VideoInfo, error) {
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, fmt.Errorf("yt-dlp returned no video metadata")
	}

	ex := infos[0]
	info := &models.VideoInfo{
		ID:          ex.ID,
		Ext:         ex.Extension,
		Title:       deref(ex.Title),
		Thumbnail:   deref(ex.Thumbnail),
		Description: deref(ex.Description),
	}
	if ex.Duration != nil {
		info.Duration = int(math.Round(*ex.Duration))
	}
	info.ApplyDefaults()

	return info, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// errorText picks the most descriptive message for a failed invocation
func errorText(res *ytdlp.Result, err error) string {
	if res != nil {
		if msg := lastErrorLine(res.Stderr); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// lastErrorLine returns the last "ERROR:" line of stderr without the prefix
func lastErrorLine(stderr string) string {
	lines := strings.Split(stderr, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	return ""
}

package ffmpeg

import (
	"fmt"
	"os/exec"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
)

const (
	VideoStreamType = "video"
	AudioStreamType = "audio"
)

type (
	// Probe is the subset of the ffprobe output used when extracting
	// metadata from a media container.
	Probe struct {
		Format  Format
		Streams []Stream
	}

	Format struct {
		Name      string
		LongName  string
		Duration  string
		BitRate   string
		NbStreams int
	}

	Stream struct {
		Index              int
		CodecType          string
		CodecName          string
		Profile            string
		Width              int
		Height             int
		PixFmt             string
		AvgFrameRate       string
		BitRate            string
		DisplayAspectRatio string
	}

	// Prober runs ffprobe against media files.
	Prober struct {
		cfg ffmpeg.Config
	}
)

// NewProber creates a Prober which uses the ffprobe binary at the path
// provided. If the path is empty, 'ffprobe' is looked up on the PATH.
func NewProber(ffprobeBinPath string) *Prober {
	if ffprobeBinPath == "" {
		ffprobeBinPath = "ffprobe"
	}

	return &Prober{cfg: ffmpeg.Config{FfprobeBinPath: ffprobeBinPath}}
}

// Available returns an error if the configured ffprobe binary cannot be found.
func (p *Prober) Available() error {
	if _, err := exec.LookPath(p.cfg.FfprobeBinPath); err != nil {
		return fmt.Errorf("ffprobe binary '%s' not available: %w", p.cfg.FfprobeBinPath, err)
	}

	return nil
}

func (p *Prober) ProbeFile(path string) (*Probe, error) {
	cfg := p.cfg
	transcoder := ffmpeg.New(&cfg).Input(path)
	metadata, err := transcoder.GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to extract file metadata information using ffprobe: %s", err.Error())
	}

	return newProbe(metadata), nil
}

func newProbe(metadata transcoder.Metadata) *Probe {
	format := metadata.GetFormat()
	probe := &Probe{
		Format: Format{
			Name:      format.GetFormatName(),
			LongName:  format.GetFormatLongName(),
			Duration:  format.GetDuration(),
			BitRate:   format.GetBitRate(),
			NbStreams: format.GetNbStreams(),
		},
	}

	for _, s := range metadata.GetStreams() {
		probe.Streams = append(probe.Streams, Stream{
			Index:              s.GetIndex(),
			CodecType:          s.GetCodecType(),
			CodecName:          s.GetCodecName(),
			Profile:            s.GetProfile(),
			Width:              s.GetWidth(),
			Height:             s.GetHeight(),
			PixFmt:             s.GetPixFmt(),
			AvgFrameRate:       s.GetAvgFrameRate(),
			BitRate:            s.GetBitRate(),
			DisplayAspectRatio: s.GetDisplayAspectRatio(),
		})
	}

	return probe
}

// FirstStream returns the first stream of the codec type provided, or
// nil if the probe contains no such stream.
func (p *Probe) FirstStream(codecType string) *Stream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == codecType {
			return &p.Streams[i]
		}
	}

	return nil
}

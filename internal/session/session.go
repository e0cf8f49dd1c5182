// Package session bundles one peer connection, its outbound track, the FIFO
// queue feeding it, mic capture, and the transcription/TTS pipelines behind
// the small surface the signalling handler calls: handle_offer, start_audio,
// stop_audio, speak_text, stop_speaking, start_recording, stop_recording,
// close.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	opus "gopkg.in/hraban/opus.v2"

	"github.com/voicebridge/gateway/internal/audio"
	"github.com/voicebridge/gateway/internal/audio/mic"
	"github.com/voicebridge/gateway/internal/audio/queue"
	"github.com/voicebridge/gateway/internal/audio/track"
	"github.com/voicebridge/gateway/internal/transcription"
	"github.com/voicebridge/gateway/internal/tts"
	"github.com/voicebridge/gateway/pkg/commons"
)

// ICEServer mirrors the JSON shape accepted in hello_ack / ICE_SERVERS_JSON.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// OnTranscription forwards a rolling or final transcript to the caller
// (the signalling handler), which wraps it into a {type:"transcription"}
// protocol message.
type OnTranscription func(text string, partial bool)

// Session is the Session aggregate of §4.6: one peer connection, its track
// source, the FIFO feeding it, mic capture state, and the transcription/TTS
// pipelines that operate on them.
type Session struct {
	id     string
	logger commons.Logger

	mu sync.Mutex
	pc *webrtc.PeerConnection

	// wg tracks the mic-ingest goroutine launched from OnTrack. Added to
	// before the goroutine is launched, to avoid the Add/Wait race.
	wg sync.WaitGroup

	trackSource *track.Source
	fifo        *queue.FIFO
	ingestor    *mic.Ingestor

	ttsPipeline   *tts.Pipeline
	sttPipeline   *transcription.Pipeline

	micCtx    context.Context
	micCancel context.CancelFunc
}

// New constructs a Session bound to a fresh PeerConnection, registering the
// Opus codec; the outbound audio track is attached later by HandleOffer. No
// network I/O happens until handle_offer is called.
func New(iceServers []ICEServer, logger commons.Logger, ttsEngine tts.Engine, sttEngine transcription.Engine, transcribeInterval int) (*Session, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   audio.SampleRate,
			Channels:    2,
			SDPFmtpLine: audio.OpusSDPFmtpLine,
		},
		PayloadType: audio.OpusPayloadType,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("register opus codec: %w", err)
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine))

	config := webrtc.Configuration{}
	for _, s := range iceServers {
		config.ICEServers = append(config.ICEServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	pc, err := api.NewPeerConnection(config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	fifo := queue.New()
	trackSource := track.New()
	ingestor := mic.New(logger)

	sess := &Session{
		id:          uuid.New().String(),
		logger:      logger,
		pc:          pc,
		trackSource: trackSource,
		fifo:        fifo,
		ingestor:    ingestor,
	}
	sess.ttsPipeline = tts.New(ttsEngine, fifo, trackSource, logger)
	sess.sttPipeline = transcription.New(sttEngine, ingestor, time.Duration(transcribeInterval)*time.Second, logger)

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Infow("webrtc connection state changed", "state", state.String(), "session", sess.id)
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		logger.Debugw("ice connection state changed", "state", state.String(), "session", sess.id)
	})

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if remote.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		logger.Infow("remote audio track received", "codec", remote.Codec().MimeType, "session", sess.id)
		sess.mu.Lock()
		ctx := sess.micCtx
		sess.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		sess.wg.Add(1)
		go func() {
			defer sess.wg.Done()
			ingestor.Run(ctx, remote)
		}()
	})

	return sess, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// HandleOffer attaches the outbound track to the peer connection, sets the
// remote description to the client's offer, creates and sets a local
// answer, and returns its SDP. No trickle ICE: the browser-side caller waits
// for ICE gathering to complete before sending the offer, so all candidates
// are already embedded.
func (s *Session) HandleOffer(ctx context.Context, sdp string) (string, error) {
	localTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: audio.SampleRate, Channels: 2},
		"audio",
		"voicebridge",
	)
	if err != nil {
		return "", fmt.Errorf("create local track: %w", err)
	}

	s.mu.Lock()
	pc := s.pc
	s.mu.Unlock()

	if _, err := pc.AddTrack(localTrack); err != nil {
		return "", fmt.Errorf("add local track: %w", err)
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		return "", fmt.Errorf("set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	go s.runTrackWriter(localTrack)

	s.logger.Infow("sdp answer created", "session", s.id)
	return pc.LocalDescription().SDP, nil
}

// runTrackWriter pulls paced frames from the Clocked Track Source, Opus-
// encodes each, and writes it to the outbound local track for the lifetime
// of the peer connection.
func (s *Session) runTrackWriter(localTrack *webrtc.TrackLocalStaticSample) {
	encoder, err := opus.NewEncoder(audio.SampleRate, 1, opus.AppVoIP)
	if err != nil {
		s.logger.Errorw("failed to create opus encoder", "error", err, "session", s.id)
		return
	}

	opusBuf := make([]byte, 4000)
	pcmBuf := make([]int16, audio.FrameSamples)

	for {
		s.mu.Lock()
		pc := s.pc
		s.mu.Unlock()
		if pc == nil || pc.ConnectionState() == webrtc.PeerConnectionStateClosed {
			return
		}

		frame := s.trackSource.NextFrame()
		for i := range pcmBuf {
			lo := int16(frame.Samples[2*i])
			hi := int16(frame.Samples[2*i+1])
			pcmBuf[i] = lo | hi<<8
		}

		n, err := encoder.Encode(pcmBuf, opusBuf)
		if err != nil {
			s.logger.Debugw("opus encode failed", "error", err, "session", s.id)
			continue
		}

		sample := media.Sample{Data: opusBuf[:n], Duration: audio.FrameDuration}
		if err := localTrack.WriteSample(sample); err != nil {
			s.logger.Debugw("write sample failed", "error", err, "session", s.id)
		}
	}
}

// StartAudio attaches the sine-wave connectivity-check generator — distinct
// from TTS playback. A "sine-<hz>" voice id selects the tone frequency; any
// other id plays 440 Hz.
func (s *Session) StartAudio(voiceID string) {
	freq := 440.0
	var hz float64
	if _, err := fmt.Sscanf(voiceID, "sine-%g", &hz); err == nil && hz > 0 {
		freq = hz
	}
	s.trackSource.SetGenerator(track.NewSineGenerator(freq))
	s.logger.Infow("audio started", "voice", voiceID, "session", s.id)
}

// StopAudio detaches the connectivity-check generator; the track reverts to
// silence.
func (s *Session) StopAudio() {
	s.trackSource.ClearGenerator()
	s.logger.Infow("audio stopped", "session", s.id)
}

// SpeakText synthesizes text sentence-by-sentence and streams it to the
// outbound track via the FIFO. Blocks the caller for the duration of
// synthesis — callers that must stay responsive to stop_speaking run this
// on its own goroutine and rely on StopSpeaking's state mutation rather than
// cancellation to interrupt playback.
func (s *Session) SpeakText(ctx context.Context, text, voiceID string) {
	s.ttsPipeline.SpeakText(ctx, text, voiceID, s.fifo)
}

// StopSpeaking clears the FIFO and detaches its generator — barge-in.
// Idempotent.
func (s *Session) StopSpeaking() {
	s.ttsPipeline.StopSpeaking()
}

// StartRecording begins mic capture and rolling transcription. onPartial is
// invoked from a background goroutine with each rolling transcript.
func (s *Session) StartRecording(onPartial OnTranscription) {
	s.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	s.micCtx = ctx
	s.micCancel = cancel
	s.mu.Unlock()

	s.sttPipeline.StartRecording(ctx, transcription.OnPartial(onPartial))
}

// StopRecording stops mic capture and rolling transcription, then runs a
// final STT pass over the full buffered audio and returns its text.
func (s *Session) StopRecording(ctx context.Context) (string, error) {
	text, err := s.sttPipeline.StopRecording(ctx)

	s.mu.Lock()
	if s.micCancel != nil {
		s.micCancel()
		s.micCancel = nil
	}
	s.mu.Unlock()

	return text, err
}

// Close cancels any in-flight mic capture, tears down the peer connection,
// then waits for the mic-ingest goroutine to return before returning itself.
// Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.micCancel != nil {
		s.micCancel()
		s.micCancel = nil
	}
	pc := s.pc
	s.pc = nil
	s.mu.Unlock()

	var closeErr error
	if pc != nil {
		s.logger.Infow("session closed", "session", s.id)
		closeErr = pc.Close()
	}
	s.wg.Wait()
	return closeErr
}

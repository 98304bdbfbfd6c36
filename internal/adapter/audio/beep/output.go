package beep

import (
	gobeep "github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Output is the sink the engine mixes into. Lock must be held while touching
// streamers the output is playing.
type Output interface {
	Init(sampleRate gobeep.SampleRate, bufferSize int) error
	Play(s ...gobeep.Streamer)
	Lock()
	Unlock()
	Clear()
	Close()
}

// SpeakerOutput plays through the default audio device.
type SpeakerOutput struct{}

func (SpeakerOutput) Init(sampleRate gobeep.SampleRate, bufferSize int) error {
	return speaker.Init(sampleRate, bufferSize)
}

func (SpeakerOutput) Play(s ...gobeep.Streamer) { speaker.Play(s...) }
func (SpeakerOutput) Lock()                     { speaker.Lock() }
func (SpeakerOutput) Unlock()                   { speaker.Unlock() }
func (SpeakerOutput) Clear()                    { speaker.Clear() }
func (SpeakerOutput) Close()                    { speaker.Close() }

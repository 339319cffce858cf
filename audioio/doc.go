// Package audioio converts between encoded audio files and mono
// buffer.Buffer values.
//
// Decode sniffs the container with mimetype and decodes WAV, MP3, FLAC and
// Ogg Vorbis through beep. Multi-channel input is reduced to mono according
// to a ChannelMode. EncodeWAV writes 16-bit PCM mono WAV.
package audioio

package domain

import (
	"encoding/base64"
	"math"
	"strings"
	"time"

	"mixmatch/domain/event"
	"mixmatch/errors"

	"github.com/gabriel-vasile/mimetype"
)

const (
	pngDataPrefix  = "data:image/png;base64,"
	MaxEmoteLength = 250_000
	EmoteCooldown  = 5 * time.Second
)

// ValidateEmote checks that image is a base64 data url whose bytes really are a png.
func ValidateEmote(image string) error {
	if !strings.HasPrefix(image, pngDataPrefix) {
		return errors.ErrBadImage
	}
	if len(image) > MaxEmoteLength {
		return errors.ErrImageTooLarge
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(image, pngDataPrefix))
	if err != nil || !mimetype.Detect(raw).Is("image/png") {
		return errors.ErrBadImage
	}
	return nil
}

// SendEmote broadcasts an image from a player or the host, at most once per
// cooldown window per sender name.
func (r *Room) SendEmote(actor ConnID, image string, now time.Time) error {
	name := hostDisplayName
	if actor != r.hostID {
		p, ok := r.players[actor]
		if !ok {
			return errors.ErrNotInRoom
		}
		name = p.Name
	}
	if err := ValidateEmote(image); err != nil {
		return err
	}
	key := KeyOf(name)
	if last, ok := r.emoteCooldown[key]; ok {
		if wait := last.Add(EmoteCooldown).Sub(now); wait > 0 {
			return &errors.CooldownError{Wait: int(math.Ceil(wait.Seconds()))}
		}
	}
	r.emoteCooldown[key] = now
	r.emit(event.EmoteNew, event.Emote{From: string(actor), Name: name, Image: image, At: now.UnixMilli()}, now)
	return nil
}

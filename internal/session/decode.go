package session

import (
	"encoding/json"
	"reflect"
)

// templates holds one zero-value instance of every mutation kind, each
// already carrying the right baseMutation.kind (set by its New*
// constructor with zero-valued arguments). DecodeMutation clones a
// template and unmarshals the wire payload's exported fields onto the
// clone; the embedded baseMutation is never present in JSON, so it
// survives untouched.
var templates = map[Kind]Mutation{
	KindToggleStep:        NewToggleStep("", 0),
	KindSetTempo:          NewSetTempo(0),
	KindSetSwing:          NewSetSwing(0),
	KindSetTrackVolume:    NewSetTrackVolume("", 0),
	KindSetTrackTranspose: NewSetTrackTranspose("", 0),
	KindSetTrackStepCount: NewSetTrackStepCount("", 0),
	KindAddTrack:          NewAddTrack(Track{}),
	KindDeleteTrack:       NewDeleteTrack(""),
	KindClearTrack:        NewClearTrack(""),
	KindSetTrackSample:    NewSetTrackSample("", "", nil),
	KindSetParameterLock:  NewSetParameterLock("", 0, nil),
	KindCopySequence:      NewCopySequence("", ""),
	KindMoveSequence:      NewMoveSequence("", ""),
	KindSetEffects:        NewSetEffects(Effects{}),
	KindSetScale:          NewSetScale(nil),
	KindSetSessionName:    NewSetSessionName(""),
	KindSetLoopRegion:     NewSetLoopRegion(nil),
	KindRotatePattern:     NewRotatePattern("", 0),
	KindInvertPattern:     NewInvertPattern(""),
	KindReversePattern:    NewReversePattern(""),
	KindMirrorPattern:     NewMirrorPattern(""),
	KindEuclideanFill:     NewEuclideanFill("", 0),
	KindReorderTracks:     NewReorderTracks(0, 0),
	KindReorderTrackByID:  NewReorderTrackByID("", ""),
	KindSetTrackMuted:     NewSetTrackMuted("", false),
	KindSetTrackSoloed:    NewSetTrackSoloed("", false),
	KindResetState:        NewResetState(),
}

// DecodeMutation unmarshals a wire payload into the concrete mutation
// struct named by kind. It returns ErrUnknownMutation for a kind this
// build doesn't recognise, the degrade-gracefully case for version
// skew between client and server.
func DecodeMutation(kind Kind, payload json.RawMessage) (Mutation, error) {
	template, ok := templates[kind]
	if !ok {
		return nil, ErrUnknownMutation
	}
	ptr := reflect.New(reflect.TypeOf(template))
	ptr.Elem().Set(reflect.ValueOf(template))
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, ptr.Interface()); err != nil {
			return nil, err
		}
	}
	return ptr.Elem().Interface().(Mutation), nil
}

package noise

import (
	"errors"
	"fmt"

	"noisepay/internal/crypto"
	"noisepay/internal/domain"
)

const (
	// ProtocolName selects the handshake pattern and primitives.
	ProtocolName = "Noise_IK_25519_ChaChaPoly_BLAKE2s"
	// Prologue is mixed into the transcript so other protocols' handshakes
	// never verify here.
	Prologue = "noisepay/1"

	// DHLen is the size of an X25519 public key.
	DHLen = 32
	// Message1MinLen is e, encrypted s and an empty encrypted payload.
	Message1MinLen = DHLen + DHLen + TagLen + TagLen
	// Message2MinLen is e and an empty encrypted payload.
	Message2MinLen = DHLen + TagLen
)

var (
	ErrWrongState        = errors.New("noise: handshake step called out of order")
	ErrHandshakeConsumed = errors.New("noise: handshake state already consumed")
	ErrInvalidKey        = errors.New("noise: invalid static key")
)

// Role is the side of the handshake a party plays.
type Role uint8

const (
	RoleInitiator Role = iota + 1
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// State is the lifecycle position of a handshake.
type State uint8

const (
	StateCreated State = iota
	StateMessage1Sent
	StateMessage1Received
	StateMessage2Sent
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateMessage1Sent:
		return "Message1Sent"
	case StateMessage1Received:
		return "Message1Received"
	case StateMessage2Sent:
		return "Message2Sent"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// KeyPair is an X25519 static key pair.
type KeyPair struct {
	Private domain.X25519Private
	Public  domain.X25519Public
}

// Result carries everything a completed handshake hands to the transport
// layer. Send and Recv are already oriented for the local role.
type Result struct {
	Send          *CipherState
	Recv          *CipherState
	PeerStatic    domain.X25519Public
	HandshakeHash [HashLen]byte
}

// Destroy wipes both transport ciphers.
func (r *Result) Destroy() {
	if r == nil {
		return
	}
	r.Send.Destroy()
	r.Recv.Destroy()
}

type handshakeState struct {
	ss    symmetricState
	s     KeyPair
	e     KeyPair
	rs    domain.X25519Public
	re    domain.X25519Public
	state State
}

func (hs *handshakeState) init(static KeyPair) {
	hs.ss.initialize(ProtocolName)
	hs.ss.mixHash([]byte(Prologue))
	hs.s = static
	hs.state = StateCreated
}

// step checks that the handshake is in want before a transition.
func (hs *handshakeState) step(want State) error {
	switch hs.state {
	case StateCompleted, StateFailed:
		return ErrHandshakeConsumed
	case want:
		return nil
	default:
		return fmt.Errorf("%w: in %s, need %s", ErrWrongState, hs.state, want)
	}
}

func (hs *handshakeState) generateEphemeral() error {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	hs.e = KeyPair{Private: priv, Public: pub}
	return nil
}

func (hs *handshakeState) mixDH(priv domain.X25519Private, pub domain.X25519Public) error {
	shared, err := crypto.DH(priv, pub)
	if err != nil {
		return err
	}
	hs.ss.mixKey(shared[:])
	crypto.Wipe32(&shared)
	return nil
}

// finish wipes all handshake secrets and returns the transport ciphers.
func (hs *handshakeState) finish(role Role) *Result {
	c1, c2 := hs.ss.split()
	res := &Result{PeerStatic: hs.rs, HandshakeHash: hs.ss.h}
	if role == RoleInitiator {
		res.Send, res.Recv = c1, c2
	} else {
		res.Send, res.Recv = c2, c1
	}
	hs.wipe()
	hs.state = StateCompleted
	return res
}

// fail wipes all handshake secrets and records the failure. Decryption and
// DH errors are reported as domain.ErrDecryptFailure.
func (hs *handshakeState) fail(err error) error {
	hs.wipe()
	hs.state = StateFailed
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, errShortMessage) || errors.Is(err, errDH) {
		return fmt.Errorf("%w: %v", domain.ErrDecryptFailure, err)
	}
	return err
}

func (hs *handshakeState) wipe() {
	hs.ss.destroy()
	crypto.Wipe(hs.e.Private[:])
	crypto.Wipe(hs.s.Private[:])
}

var (
	errShortMessage = errors.New("noise: handshake message too short")
	errDH           = errors.New("noise: invalid public key in handshake")
)

func (hs *handshakeState) dh(priv domain.X25519Private, pub domain.X25519Public) error {
	if err := hs.mixDH(priv, pub); err != nil {
		return fmt.Errorf("%w: %v", errDH, err)
	}
	return nil
}

// Initiator runs the initiator side: WriteMessage1 then ReadMessage2.
type Initiator struct {
	hs handshakeState
}

// NewInitiator prepares a handshake towards the responder whose static key
// is remoteStatic, known out of band.
func NewInitiator(static KeyPair, remoteStatic domain.X25519Public) (*Initiator, error) {
	if remoteStatic.IsZero() {
		return nil, ErrInvalidKey
	}
	i := &Initiator{}
	i.hs.init(static)
	i.hs.rs = remoteStatic
	i.hs.ss.mixHash(remoteStatic[:])
	return i, nil
}

// State returns the current handshake state.
func (i *Initiator) State() State { return i.hs.state }

// Abort wipes the handshake without completing it.
func (i *Initiator) Abort() {
	if i.hs.state != StateCompleted && i.hs.state != StateFailed {
		i.hs.wipe()
		i.hs.state = StateFailed
	}
}

// WriteMessage1 produces -> e, es, s, ss with payload encrypted.
func (i *Initiator) WriteMessage1(payload []byte) ([]byte, error) {
	hs := &i.hs
	if err := hs.step(StateCreated); err != nil {
		return nil, err
	}
	if err := hs.generateEphemeral(); err != nil {
		return nil, hs.fail(err)
	}

	out := make([]byte, 0, Message1MinLen+len(payload))
	out = append(out, hs.e.Public[:]...)
	hs.ss.mixHash(hs.e.Public[:])

	if err := hs.dh(hs.e.Private, hs.rs); err != nil {
		return nil, hs.fail(err)
	}
	encS, err := hs.ss.encryptAndHash(hs.s.Public[:])
	if err != nil {
		return nil, hs.fail(err)
	}
	out = append(out, encS...)

	if err := hs.dh(hs.s.Private, hs.rs); err != nil {
		return nil, hs.fail(err)
	}
	encP, err := hs.ss.encryptAndHash(payload)
	if err != nil {
		return nil, hs.fail(err)
	}
	out = append(out, encP...)

	hs.state = StateMessage1Sent
	return out, nil
}

// ReadMessage2 consumes <- e, ee, se and completes the handshake.
func (i *Initiator) ReadMessage2(msg []byte) ([]byte, *Result, error) {
	hs := &i.hs
	if err := hs.step(StateMessage1Sent); err != nil {
		return nil, nil, err
	}
	if len(msg) < Message2MinLen {
		return nil, nil, hs.fail(errShortMessage)
	}

	copy(hs.re[:], msg[:DHLen])
	hs.ss.mixHash(hs.re[:])
	if err := hs.dh(hs.e.Private, hs.re); err != nil {
		return nil, nil, hs.fail(err)
	}
	if err := hs.dh(hs.s.Private, hs.re); err != nil {
		return nil, nil, hs.fail(err)
	}
	payload, err := hs.ss.decryptAndHash(msg[DHLen:])
	if err != nil {
		return nil, nil, hs.fail(err)
	}
	return payload, hs.finish(RoleInitiator), nil
}

// Responder runs the responder side: ReadMessage1 then WriteMessage2.
type Responder struct {
	hs handshakeState
}

// NewResponder prepares to answer a handshake addressed to static.
func NewResponder(static KeyPair) (*Responder, error) {
	if static.Public.IsZero() {
		return nil, ErrInvalidKey
	}
	r := &Responder{}
	r.hs.init(static)
	r.hs.ss.mixHash(static.Public[:])
	return r, nil
}

// State returns the current handshake state.
func (r *Responder) State() State { return r.hs.state }

// Abort wipes the handshake without completing it.
func (r *Responder) Abort() {
	if r.hs.state != StateCompleted && r.hs.state != StateFailed {
		r.hs.wipe()
		r.hs.state = StateFailed
	}
}

// PeerStatic returns the initiator's static key once message 1 has been
// authenticated.
func (r *Responder) PeerStatic() (domain.X25519Public, bool) {
	if r.hs.state != StateMessage1Received {
		return domain.X25519Public{}, false
	}
	return r.hs.rs, true
}

// ReadMessage1 consumes -> e, es, s, ss and returns the decrypted payload.
func (r *Responder) ReadMessage1(msg []byte) ([]byte, error) {
	hs := &r.hs
	if err := hs.step(StateCreated); err != nil {
		return nil, err
	}
	if len(msg) < Message1MinLen {
		return nil, hs.fail(errShortMessage)
	}

	copy(hs.re[:], msg[:DHLen])
	hs.ss.mixHash(hs.re[:])
	if err := hs.dh(hs.s.Private, hs.re); err != nil {
		return nil, hs.fail(err)
	}

	encS := msg[DHLen : DHLen+DHLen+TagLen]
	rs, err := hs.ss.decryptAndHash(encS)
	if err != nil {
		return nil, hs.fail(err)
	}
	copy(hs.rs[:], rs)

	if err := hs.dh(hs.s.Private, hs.rs); err != nil {
		return nil, hs.fail(err)
	}
	payload, err := hs.ss.decryptAndHash(msg[DHLen+DHLen+TagLen:])
	if err != nil {
		return nil, hs.fail(err)
	}
	hs.state = StateMessage1Received
	return payload, nil
}

// WriteMessage2 produces <- e, ee, se with payload encrypted and completes
// the handshake.
func (r *Responder) WriteMessage2(payload []byte) ([]byte, *Result, error) {
	hs := &r.hs
	if err := hs.step(StateMessage1Received); err != nil {
		return nil, nil, err
	}
	if err := hs.generateEphemeral(); err != nil {
		return nil, nil, hs.fail(err)
	}

	out := make([]byte, 0, Message2MinLen+len(payload))
	out = append(out, hs.e.Public[:]...)
	hs.ss.mixHash(hs.e.Public[:])

	if err := hs.dh(hs.e.Private, hs.re); err != nil {
		return nil, nil, hs.fail(err)
	}
	if err := hs.dh(hs.e.Private, hs.rs); err != nil {
		return nil, nil, hs.fail(err)
	}
	encP, err := hs.ss.encryptAndHash(payload)
	if err != nil {
		return nil, nil, hs.fail(err)
	}
	out = append(out, encP...)

	hs.state = StateMessage2Sent
	return out, hs.finish(RoleResponder), nil
}

// Respond runs both responder steps in one call for servers that do not
// need to inspect the initiator's payload before answering.
func Respond(static KeyPair, msg1, payload []byte) (peerPayload, msg2 []byte, res *Result, err error) {
	r, err := NewResponder(static)
	if err != nil {
		return nil, nil, nil, err
	}
	peerPayload, err = r.ReadMessage1(msg1)
	if err != nil {
		return nil, nil, nil, err
	}
	msg2, res, err = r.WriteMessage2(payload)
	if err != nil {
		return nil, nil, nil, err
	}
	return peerPayload, msg2, res, nil
}

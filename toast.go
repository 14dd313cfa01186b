package main

// sendErrorToast delivers a recoverable error to one actor. Rejected
// submissions land here; the actor may resubmit while the phase is
// still open.
func (h *Hub) sendErrorToast(actorID, message string) {
	h.sendToActor(actorID, WSEvent{Event: "toast", Message: message})
}

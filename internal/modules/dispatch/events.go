// README: Real-time event vocabulary shared with the mobile clients.
package dispatch

const (
	// EventNewRide offers a pending request to a nearby captain.
	EventNewRide = "new-ride"
	// EventRideConfirmed tells the rider a captain accepted; carries the
	// trip OTP for pickup verification.
	EventRideConfirmed = "ride-confirmed"
	// EventRideConfirmationSuccess acknowledges the winning captain.
	EventRideConfirmationSuccess = "ride-confirmation-success"
	// EventRideTaken tells the remaining candidates the offer is gone.
	EventRideTaken = "ride-taken"
	EventRideStarted   = "ride-started"
	EventRideEnded     = "ride-ended"
	EventRideCancelled = "ride-cancelled"
)

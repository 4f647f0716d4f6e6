package apierrors

import (
	"errors"

	campaignProcessor "push-server/internal/campaign/processor"
	"push-server/internal/deliveries"
	"push-server/internal/dispatch"
	landingProcessor "push-server/internal/landingpages/processor"
	notificationsProcessor "push-server/internal/notifications/processor"
	"push-server/internal/push"
	registryProcessor "push-server/internal/registry/processor"
	segmentsProcessor "push-server/internal/segments/processor"
	"push-server/internal/store"
)

// MapError converts domain/processor errors to APIErrors.
//
// If the error is already an APIError, it returns it as-is.
// Validation errors keep their detailed message since it is safe and useful
// to the caller (it carries the decoded key length, for example).
// Unknown errors become a sanitized InternalError (500).
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	// Subscription and payload validation
	case errors.Is(err, push.ErrInvalidKeyLength):
		return BadRequest(CodeInvalidKeyLength, err.Error())

	case errors.Is(err, push.ErrMalformedBase64):
		return BadRequest(CodeMalformedBase64, err.Error())

	case errors.Is(err, push.ErrMissingKeys):
		return BadRequest(CodeMissingKeys, err.Error())

	case errors.Is(err, push.ErrInvalidSubscription):
		return BadRequest(CodeInvalidSubscription, err.Error())

	case errors.Is(err, push.ErrMissingContent):
		return BadRequest(CodeMissingContent, "Notification title and message are required")

	case errors.Is(err, push.ErrPayloadTooLarge):
		return BadRequest(CodePayloadTooLarge, "Notification payload exceeds the push message size limit")

	// Dispatch
	case errors.Is(err, dispatch.ErrNoValidSubscriptions):
		return BadRequest(CodeNoValidSubscriptions, "No valid subscriptions found")

	case errors.Is(err, notificationsProcessor.ErrNoClients):
		return NotFound(CodeNoClients, "No clients found")

	case errors.Is(err, notificationsProcessor.ErrCampaignNotSendable):
		return Conflict(CodeCampaignNotSendable, "Campaign cannot be sent in its current status")

	case errors.Is(err, deliveries.ErrInvalidTrackEvent):
		return BadRequest(CodeInvalidTrackingEvent, "Invalid tracking event")

	// Registry
	case errors.Is(err, registryProcessor.ErrClientNotFound):
		return NotFound(CodeClientNotFound, "Client not found")

	case errors.Is(err, registryProcessor.ErrInvalidAccessStatus):
		return BadRequest(CodeInvalidAccessStatus, "Invalid access status. Valid values: allowed, blocked, expired, pending")

	// Campaigns
	case errors.Is(err, campaignProcessor.ErrCampaignNotFound), errors.Is(err, notificationsProcessor.ErrCampaignNotFound):
		return NotFound(CodeCampaignNotFound, "Campaign not found")

	case errors.Is(err, campaignProcessor.ErrInvalidCampaignStatus):
		return BadRequest(CodeInvalidStatus, "Invalid campaign status")

	case errors.Is(err, campaignProcessor.ErrInvalidStatusTransition):
		return Conflict(CodeInvalidTransition, "Campaign cannot move to the requested status")

	case errors.Is(err, campaignProcessor.ErrInvalidSchedule):
		return BadRequest(CodeInvalidSchedule, "Scheduled campaigns need a scheduledAt in the future")

	case errors.Is(err, campaignProcessor.ErrInvalidABSplit):
		return BadRequest(CodeInvalidABSplit, "abSplit must be between 0 and 100")

	case errors.Is(err, campaignProcessor.ErrInvalidAudience):
		return BadRequest(CodeInvalidAudience, "Segment audience requires a segmentId")

	case errors.Is(err, campaignProcessor.ErrSchedulerUnavailable):
		return ServiceUnavailable(CodeSchedulerUnavailable, "Campaign scheduling is not configured", err)

	// Landing pages
	case errors.Is(err, landingProcessor.ErrLandingPageNotFound):
		return NotFound(CodeLandingPageNotFound, "Landing page not found")

	case errors.Is(err, landingProcessor.ErrLandingIDTaken):
		return Conflict(CodeLandingIDExists, "Landing id already exists")

	// Segments
	case errors.Is(err, segmentsProcessor.ErrSegmentNotFound):
		return NotFound(CodeSegmentNotFound, "Segment not found")

	case errors.Is(err, segmentsProcessor.ErrMembershipNotFound):
		return NotFound(CodeNotFound, "Client is not a member of the segment")

	case errors.Is(err, segmentsProcessor.ErrInvalidSegmentName),
		errors.Is(err, segmentsProcessor.ErrNoClientIDs):
		return BadRequest(CodeInvalidInput, err.Error())

	case errors.Is(err, store.ErrNotFound):
		return NotFound(CodeNotFound, "Resource not found")

	default:
		return InternalError(err)
	}
}

package rpc

import (
	"context"

	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/logging"
	"github.com/hupe1980/agentbus/runtime"
)

// EnableRecovery installs the runtime hook that turns a lost response
// publish into an error-topic notification for its publisher. The publisher
// looks up which call the response belonged to and forwards the loss to the
// original caller, whose await then fails with ErrResponseDropped instead of
// hanging until its timeout.
func EnableRecovery(rt *runtime.Runtime, optFns ...func(o *Options)) {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	rt.SetUndeliverableHandler(func(_ core.Message, sender *core.AgentID, topic core.TopicID, messageID string) {
		if requestID, ok := responseRequestID(topic.Type); ok {
			if sender != nil {
				// Keyed by the lost response's own id; the publisher's
				// sent table maps it back to the original request.
				err := rt.Publish(context.Background(), DroppedResponse{RequestID: messageID}, ErrorTopic(sender.Type, messageID, sender.Key))
				if err != nil {
					opts.Logger.Error("failed to publish drop notification", "topic", topic.String(), "error", err)
				}

				return
			}

			// Senderless responses occur on same-type exchanges. The lost
			// topic itself names the caller type and the request id, so
			// the loss is reported straight to the caller.
			err := rt.Publish(context.Background(), DroppedResponse{RequestID: requestID}, ErrorTopic(addresseeType(topic.Type), requestID, topic.Source))
			if err != nil {
				opts.Logger.Error("failed to publish drop notification", "topic", topic.String(), "error", err)
			}

			return
		}

		if _, ok := errorRequestID(topic.Type); ok {
			// A lost error notification is not recovered further.
			return
		}

		opts.Logger.Debug("undeliverable publish", "topic", topic.String(), "message_id", messageID)
	})
}

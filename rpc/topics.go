package rpc

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentbus/core"
)

// Topic type encoding: "{addressee}:{kind}={argument}". The addressee prefix
// makes the "<type>:" prefix subscription of the addressed agent match; the
// kind segment carries the counterpart type for requests and the correlation
// id for everything else. This encoding is a stable contract.
const (
	kindRequest  = "request"
	kindResponse = "response"
	kindError    = "error"
	kindCancel   = "cancel"
)

// RequestTopic addresses a call to one instance of recipientType. The topic
// source selects the instance key; the sender type rides along so the
// recipient knows where to publish the response.
func RequestTopic(recipientType, senderType, recipientKey string) core.TopicID {
	return core.NewTopicID(fmt.Sprintf("%s:%s=%s", recipientType, kindRequest, senderType), recipientKey)
}

// ResponseTopic addresses the reply for a request id back to the calling
// type.
func ResponseTopic(callerType, requestID, sourceKey string) core.TopicID {
	return core.NewTopicID(fmt.Sprintf("%s:%s=%s", callerType, kindResponse, requestID), sourceKey)
}

// ErrorTopic addresses a typed failure for a correlation id to a calling
// type.
func ErrorTopic(callerType, requestID, sourceKey string) core.TopicID {
	return core.NewTopicID(fmt.Sprintf("%s:%s=%s", callerType, kindError, requestID), sourceKey)
}

// CancelTopic asks one instance of recipientType to abort the in-flight
// handler for a request id.
func CancelTopic(recipientType, requestID, recipientKey string) core.TopicID {
	return core.NewTopicID(fmt.Sprintf("%s:%s=%s", recipientType, kindCancel, requestID), recipientKey)
}

// addresseeType returns the "{addressee}" prefix of a protocol topic type.
func addresseeType(topicType string) string {
	name, _, _ := strings.Cut(topicType, ":")
	return name
}

// topicAddressee returns the agent id a protocol topic routes to under the
// addressee's "<type>:" prefix subscription.
func topicAddressee(topic core.TopicID) core.AgentID {
	return core.NewAgentID(addresseeType(topic.Type), topic.Source)
}

// argument extracts the "{kind}=" segment's value from a topic type, or ""
// with false when the topic does not carry that kind.
func argument(topicType, kind string) (string, bool) {
	for _, segment := range strings.Split(topicType, ":") {
		if rest, ok := strings.CutPrefix(segment, kind+"="); ok {
			return rest, true
		}
	}

	return "", false
}

func requestSenderType(topicType string) (string, bool) { return argument(topicType, kindRequest) }

func responseRequestID(topicType string) (string, bool) { return argument(topicType, kindResponse) }

func errorRequestID(topicType string) (string, bool) { return argument(topicType, kindError) }

func cancelRequestID(topicType string) (string, bool) { return argument(topicType, kindCancel) }

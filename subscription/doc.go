// Package subscription maps topics to the agents interested in them. It
// provides the two built-in subscription kinds (exact topic-type match and
// topic-type prefix match) and a Registry that memoizes routing decisions per
// topic so repeated publishes never re-scan the full subscription list.
package subscription

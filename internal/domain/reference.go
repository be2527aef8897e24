package domain

import "slices"

// LocationEvent is a signal observed from a physical source such as a wall
// call button or a presence sensor. Timestamp is epoch milliseconds.
type LocationEvent struct {
	Source    string `json:"source" dynamodbav:"source" yaml:"source"`
	Timestamp int64  `json:"timestamp" dynamodbav:"timestamp" yaml:"timestamp"`
}

// SameSource reports whether both events were produced by the same source.
func (e LocationEvent) SameSource(other LocationEvent) bool {
	return e.Source == other.Source
}

type Bed struct {
	ID                   string `json:"id" dynamodbav:"id" yaml:"id"`
	Name                 string `json:"name" dynamodbav:"name" yaml:"name"`
	Ward                 string `json:"ward" dynamodbav:"ward" yaml:"ward"`
	NotificationsEnabled bool   `json:"notificationsEnabled" dynamodbav:"notifications_enabled" yaml:"notificationsEnabled"`
}

// Organization carries the facility-wide switch for alerting.
type Organization struct {
	ID                   string `json:"id" dynamodbav:"id" yaml:"id"`
	NotificationsEnabled bool   `json:"notificationsEnabled" dynamodbav:"notifications_enabled" yaml:"notificationsEnabled"`
}

// UserDevice is one endpoint a user can be reached on. EndpointARN addresses
// the device on the push transport.
type UserDevice struct {
	ID                   string `json:"id,omitempty" dynamodbav:"id,omitempty" yaml:"id"`
	EndpointARN          string `json:"endpointArn,omitempty" dynamodbav:"endpoint_arn,omitempty" yaml:"endpointArn"`
	NotificationsEnabled bool   `json:"notificationsEnabled" dynamodbav:"notifications_enabled" yaml:"notificationsEnabled"`
}

type User struct {
	ID           string       `json:"id" dynamodbav:"id" yaml:"id"`
	EnabledWards []string     `json:"enabledWards" dynamodbav:"enabled_wards" yaml:"enabledWards"`
	Devices      []UserDevice `json:"devices" dynamodbav:"devices" yaml:"devices"`
}

// HasWard reports whether the user receives alerts for beds in ward.
func (u User) HasWard(ward string) bool {
	return slices.Contains(u.EnabledWards, ward)
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	u.EnabledWards = slices.Clone(u.EnabledWards)
	u.Devices = slices.Clone(u.Devices)
	return u
}

// jsonReady returns u with nil slices replaced by empty ones so its JSON form
// always carries arrays.
func (u User) jsonReady() User {
	if u.EnabledWards == nil {
		u.EnabledWards = []string{}
	}
	if u.Devices == nil {
		u.Devices = []UserDevice{}
	}
	return u
}

func cloneUsers(users []User) []User {
	if users == nil {
		return nil
	}
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = u.Clone()
	}
	return out
}

package protocol

// Outbound event names.
const (
	EventRegisterPlugin            = "registerPlugin"
	EventRegisterPropertyInspector = "registerPropertyInspector"
	EventSetGlobalSettings         = "setGlobalSettings"
	EventGetGlobalSettings         = "getGlobalSettings"
	EventSetBackground             = "setBackground"
	EventStopBackground            = "stopBackground"
	EventGetUserInfo               = "getUserInfo"
	EventSendToPropertyInspector   = "sendToPropertyInspector"
	EventSetState                  = "setState"
	EventSetTitle                  = "setTitle"
	EventSetImage                  = "setImage"
	EventSetSettings               = "setSettings"
	EventOpenURL                   = "openUrl"
	EventRegisterScreenSaver       = "registrationScreenSaverEvent"
	EventUnregisterScreenSaver     = "unRegistrationScreenSaverEvent"
	EventSendToPlugin              = "sendToPlugin"
)

// Inbound global events.
const (
	EventDidReceiveGlobalSettings = "didReceiveGlobalSettings"
	EventDeviceDidConnect         = "deviceDidConnect"
	EventDeviceDidDisconnect      = "deviceDidDisconnect"
	EventSendUserInfo             = "sendUserInfo"
)

// Inbound instance lifecycle events.
const (
	EventWillAppear               = "willAppear"
	EventWillDisappear            = "willDisappear"
	EventDidReceiveSettings       = "didReceiveSettings"
	EventTitleParametersDidChange = "titleParametersDidChange"
)

// Inbound interaction events.
const (
	EventKeyDown                       = "keyDown"
	EventKeyUp                         = "keyUp"
	EventTouchTap                      = "touchTap"
	EventDialDown                      = "dialDown"
	EventDialUp                        = "dialUp"
	EventDialRotate                    = "dialRotate"
	EventPropertyInspectorDidAppear    = "propertyInspectorDidAppear"
	EventPropertyInspectorDidDisappear = "propertyInspectorDidDisappear"
)

// ReservedActionID is the handler-table key holding the subscription's
// declared action type. It is never dispatched as an event.
const ReservedActionID = "ActionID"

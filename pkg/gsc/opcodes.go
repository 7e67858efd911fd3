package gsc

// Opcode identifies an instruction independently of its byte encoding.
// Byte values are mapped to opcodes by the variant's opcode table.
type Opcode uint8

const (
	OpInvalid Opcode = iota
	OpEnd
	OpReturn
	OpGetUndefined
	OpGetZero
	OpGetByte
	OpGetNegByte
	OpGetUnsignedShort
	OpGetNegUnsignedShort
	OpGetInteger
	OpGetFloat
	OpGetString
	OpGetIString
	OpGetVector
	OpGetLevelObject
	OpGetAnimObject
	OpGetSelf
	OpGetLevel
	OpGetGame
	OpGetAnim
	OpGetAnimation
	OpGetGameRef
	OpGetFunction
	OpCreateLocalVariable
	OpSafeCreateLocalVariables
	OpRemoveLocalVariables
	OpEvalLocalVariableCached
	OpEvalArray
	OpEvalLocalArrayRefCached
	OpEvalArrayRef
	OpClearArray
	OpGetEmptyArray
	OpGetSelfObject
	OpEvalFieldVariable
	OpEvalFieldVariableRef
	OpClearFieldVariable
	OpSetVariableField
	OpSetLocalVariableCached
	OpClearParams
	OpCheckClearParams
	OpEvalLocalVariableRefCached
	OpEvalLocalVariableDefined
	OpCallBuiltinFunction
	OpCallBuiltinMethod
	OpWait
	OpWaitTillFrameEnd
	OpPreScriptCall
	OpScriptFunctionCall
	OpScriptFunctionCallPointer
	OpScriptMethodCall
	OpScriptMethodCallPointer
	OpScriptThreadCall
	OpScriptThreadCallPointer
	OpScriptMethodThreadCall
	OpScriptMethodThreadCallPointer
	OpDecTop
	OpCastFieldObject
	OpCastBool
	OpBoolNot
	OpBoolComplement
	OpJumpOnFalse
	OpJumpOnTrue
	OpJumpOnFalseExpr
	OpJumpOnTrueExpr
	OpJump
	OpJumpBack
	OpInc
	OpDec
	OpBitOr
	OpBitXor
	OpBitAnd
	OpEqual
	OpNotEqual
	OpLessThan
	OpGreaterThan
	OpLessThanOrEqualTo
	OpGreaterThanOrEqualTo
	OpShiftLeft
	OpShiftRight
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulus
	OpSizeOf
	OpWaitTillMatch
	OpWaitTill
	OpNotify
	OpEndOn
	OpVoidCodePos
	OpSwitch
	OpEndSwitch
	OpVector
	OpGetHash
	OpRealWait
	OpVectorConstant
	OpIsDefined
	OpVectorScale
	OpAnglesToUp
	OpAnglesToRight
	OpAnglesToForward
	OpAngleClamp180
	OpVectorToAngles
	OpAbs
	OpGetTime
	OpGetDvar
	OpGetDvarInt
	OpGetDvarFloat
	OpGetDvarVector
	OpGetDvarColorRed
	OpGetDvarColorGreen
	OpGetDvarColorBlue
	OpGetDvarColorAlpha
	OpFirstArrayKey
	OpNextArrayKey
	OpProfileStart
	OpProfileStop
	OpSafeDecTop
	OpNop
	OpAbort
	OpObject
	OpThreadObject
	OpDevblockBegin
	OpDevblockEnd
	OpEvalLocalVariableCachedDebug
	OpEvalLocalVariableRefCachedDebug
	OpLevelEvalFieldVariable
	OpLevelEvalFieldVariableRef
	OpSelfEvalFieldVariable
	OpSelfEvalFieldVariableRef
	OpGetClasses
	OpGetClassesObject
	OpClassFunctionCall
	OpClassFunctionThreadCall
	OpSuperEqual
	OpSuperNotEqual
	OpGetSignedByte
	OpGetUnsignedInteger

	opCount
)

// OperandKind is the shape of an instruction's operand bytes.
type OperandKind uint8

const (
	KindNone OperandKind = iota
	KindInt8
	KindUInt8
	KindInt16
	KindUInt16
	KindInt32
	KindUInt32
	KindHash
	KindFloat
	KindVector
	KindVectorFlags
	KindString
	KindVariableName
	KindFunctionPointer
	KindCall
	KindVariableList
	KindSwitchEnd

	kindCount
)

var kindNames = [kindCount]string{
	"None", "Int8", "UInt8", "Int16", "UInt16", "Int32", "UInt32", "Hash",
	"Float", "Vector", "VectorFlags", "String", "VariableName",
	"FunctionPointer", "Call", "VariableList", "SwitchEnd",
}

func (k OperandKind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "[unknown]"
}

// Valid reports whether k is one of the defined operand kinds.
func (k OperandKind) Valid() bool { return k < kindCount }

// OpCategory groups opcodes for control-flow consumers.
type OpCategory uint8

const (
	CategoryMisc OpCategory = iota
	CategoryReturn
	CategoryJump
	CategoryCall
	CategorySwitch
)

// OpMetadata is the static description of an opcode.
type OpMetadata struct {
	Opcode   Opcode
	Name     string
	Operand  OperandKind
	Category OpCategory
}

var opMetadata = [opCount]OpMetadata{
	OpInvalid:                         {Name: "Invalid"},
	OpEnd:                             {Name: "End", Category: CategoryReturn},
	OpReturn:                          {Name: "Return", Category: CategoryReturn},
	OpGetUndefined:                    {Name: "GetUndefined"},
	OpGetZero:                         {Name: "GetZero"},
	OpGetByte:                         {Name: "GetByte", Operand: KindUInt8},
	OpGetNegByte:                      {Name: "GetNegByte", Operand: KindUInt8},
	OpGetUnsignedShort:                {Name: "GetUnsignedShort", Operand: KindUInt16},
	OpGetNegUnsignedShort:             {Name: "GetNegUnsignedShort", Operand: KindUInt16},
	OpGetInteger:                      {Name: "GetInteger", Operand: KindInt32},
	OpGetFloat:                        {Name: "GetFloat", Operand: KindFloat},
	OpGetString:                       {Name: "GetString", Operand: KindString},
	OpGetIString:                      {Name: "GetIString", Operand: KindString},
	OpGetVector:                       {Name: "GetVector", Operand: KindVector},
	OpGetLevelObject:                  {Name: "GetLevelObject"},
	OpGetAnimObject:                   {Name: "GetAnimObject"},
	OpGetSelf:                         {Name: "GetSelf"},
	OpGetLevel:                        {Name: "GetLevel"},
	OpGetGame:                         {Name: "GetGame"},
	OpGetAnim:                         {Name: "GetAnim"},
	OpGetAnimation:                    {Name: "GetAnimation", Operand: KindString},
	OpGetGameRef:                      {Name: "GetGameRef"},
	OpGetFunction:                     {Name: "GetFunction", Operand: KindFunctionPointer},
	OpCreateLocalVariable:             {Name: "CreateLocalVariable", Operand: KindVariableName},
	OpSafeCreateLocalVariables:        {Name: "SafeCreateLocalVariables", Operand: KindVariableList},
	OpRemoveLocalVariables:            {Name: "RemoveLocalVariables", Operand: KindUInt8},
	OpEvalLocalVariableCached:         {Name: "EvalLocalVariableCached", Operand: KindUInt8},
	OpEvalArray:                       {Name: "EvalArray"},
	OpEvalLocalArrayRefCached:         {Name: "EvalLocalArrayRefCached", Operand: KindUInt8},
	OpEvalArrayRef:                    {Name: "EvalArrayRef"},
	OpClearArray:                      {Name: "ClearArray"},
	OpGetEmptyArray:                   {Name: "GetEmptyArray"},
	OpGetSelfObject:                   {Name: "GetSelfObject"},
	OpEvalFieldVariable:               {Name: "EvalFieldVariable", Operand: KindVariableName},
	OpEvalFieldVariableRef:            {Name: "EvalFieldVariableRef", Operand: KindVariableName},
	OpClearFieldVariable:              {Name: "ClearFieldVariable", Operand: KindVariableName},
	OpSetVariableField:                {Name: "SetVariableField"},
	OpSetLocalVariableCached:          {Name: "SetLocalVariableCached", Operand: KindUInt8},
	OpClearParams:                     {Name: "ClearParams"},
	OpCheckClearParams:                {Name: "CheckClearParams"},
	OpEvalLocalVariableRefCached:      {Name: "EvalLocalVariableRefCached", Operand: KindUInt8},
	OpEvalLocalVariableDefined:        {Name: "EvalLocalVariableDefined", Operand: KindUInt8},
	OpCallBuiltinFunction:             {Name: "CallBuiltinFunction", Operand: KindCall, Category: CategoryCall},
	OpCallBuiltinMethod:               {Name: "CallBuiltinMethod", Operand: KindCall, Category: CategoryCall},
	OpWait:                            {Name: "Wait"},
	OpWaitTillFrameEnd:                {Name: "WaitTillFrameEnd"},
	OpPreScriptCall:                   {Name: "PreScriptCall"},
	OpScriptFunctionCall:              {Name: "ScriptFunctionCall", Operand: KindCall, Category: CategoryCall},
	OpScriptFunctionCallPointer:       {Name: "ScriptFunctionCallPointer", Operand: KindUInt8, Category: CategoryCall},
	OpScriptMethodCall:                {Name: "ScriptMethodCall", Operand: KindCall, Category: CategoryCall},
	OpScriptMethodCallPointer:         {Name: "ScriptMethodCallPointer", Operand: KindUInt8, Category: CategoryCall},
	OpScriptThreadCall:                {Name: "ScriptThreadCall", Operand: KindCall, Category: CategoryCall},
	OpScriptThreadCallPointer:         {Name: "ScriptThreadCallPointer", Operand: KindUInt8, Category: CategoryCall},
	OpScriptMethodThreadCall:          {Name: "ScriptMethodThreadCall", Operand: KindCall, Category: CategoryCall},
	OpScriptMethodThreadCallPointer:   {Name: "ScriptMethodThreadCallPointer", Operand: KindUInt8, Category: CategoryCall},
	OpDecTop:                          {Name: "DecTop"},
	OpCastFieldObject:                 {Name: "CastFieldObject"},
	OpCastBool:                        {Name: "CastBool"},
	OpBoolNot:                         {Name: "BoolNot"},
	OpBoolComplement:                  {Name: "BoolComplement"},
	OpJumpOnFalse:                     {Name: "JumpOnFalse", Operand: KindInt16, Category: CategoryJump},
	OpJumpOnTrue:                      {Name: "JumpOnTrue", Operand: KindInt16, Category: CategoryJump},
	OpJumpOnFalseExpr:                 {Name: "JumpOnFalseExpr", Operand: KindInt16, Category: CategoryJump},
	OpJumpOnTrueExpr:                  {Name: "JumpOnTrueExpr", Operand: KindInt16, Category: CategoryJump},
	OpJump:                            {Name: "Jump", Operand: KindInt16, Category: CategoryJump},
	OpJumpBack:                        {Name: "JumpBack", Operand: KindInt16, Category: CategoryJump},
	OpInc:                             {Name: "Inc"},
	OpDec:                             {Name: "Dec"},
	OpBitOr:                           {Name: "Bit_Or"},
	OpBitXor:                          {Name: "Bit_Xor"},
	OpBitAnd:                          {Name: "Bit_And"},
	OpEqual:                           {Name: "Equal"},
	OpNotEqual:                        {Name: "NotEqual"},
	OpLessThan:                        {Name: "LessThan"},
	OpGreaterThan:                     {Name: "GreaterThan"},
	OpLessThanOrEqualTo:               {Name: "LessThanOrEqualTo"},
	OpGreaterThanOrEqualTo:            {Name: "GreaterThanOrEqualTo"},
	OpShiftLeft:                       {Name: "ShiftLeft"},
	OpShiftRight:                      {Name: "ShiftRight"},
	OpPlus:                            {Name: "Plus"},
	OpMinus:                           {Name: "Minus"},
	OpMultiply:                        {Name: "Multiply"},
	OpDivide:                          {Name: "Divide"},
	OpModulus:                         {Name: "Modulus"},
	OpSizeOf:                          {Name: "SizeOf"},
	OpWaitTillMatch:                   {Name: "WaitTillMatch"},
	OpWaitTill:                        {Name: "WaitTill"},
	OpNotify:                          {Name: "Notify"},
	OpEndOn:                           {Name: "EndOn"},
	OpVoidCodePos:                     {Name: "VoidCodePos"},
	OpSwitch:                          {Name: "Switch", Operand: KindInt32, Category: CategorySwitch},
	OpEndSwitch:                       {Name: "EndSwitch", Operand: KindSwitchEnd, Category: CategorySwitch},
	OpVector:                          {Name: "Vector"},
	OpGetHash:                         {Name: "GetHash", Operand: KindHash},
	OpRealWait:                        {Name: "RealWait"},
	OpVectorConstant:                  {Name: "VectorConstant", Operand: KindVectorFlags},
	OpIsDefined:                       {Name: "IsDefined"},
	OpVectorScale:                     {Name: "VectorScale"},
	OpAnglesToUp:                      {Name: "AnglesToUp"},
	OpAnglesToRight:                   {Name: "AnglesToRight"},
	OpAnglesToForward:                 {Name: "AnglesToForward"},
	OpAngleClamp180:                   {Name: "AngleClamp180"},
	OpVectorToAngles:                  {Name: "VectorToAngles"},
	OpAbs:                             {Name: "Abs"},
	OpGetTime:                         {Name: "GetTime"},
	OpGetDvar:                         {Name: "GetDvar"},
	OpGetDvarInt:                      {Name: "GetDvarInt"},
	OpGetDvarFloat:                    {Name: "GetDvarFloat"},
	OpGetDvarVector:                   {Name: "GetDvarVector"},
	OpGetDvarColorRed:                 {Name: "GetDvarColorRed"},
	OpGetDvarColorGreen:               {Name: "GetDvarColorGreen"},
	OpGetDvarColorBlue:                {Name: "GetDvarColorBlue"},
	OpGetDvarColorAlpha:               {Name: "GetDvarColorAlpha"},
	OpFirstArrayKey:                   {Name: "FirstArrayKey"},
	OpNextArrayKey:                    {Name: "NextArrayKey"},
	OpProfileStart:                    {Name: "ProfileStart"},
	OpProfileStop:                     {Name: "ProfileStop"},
	OpSafeDecTop:                      {Name: "SafeDecTop"},
	OpNop:                             {Name: "Nop"},
	OpAbort:                           {Name: "Abort"},
	OpObject:                          {Name: "Object"},
	OpThreadObject:                    {Name: "ThreadObject"},
	OpDevblockBegin:                   {Name: "DevblockBegin", Operand: KindInt16, Category: CategoryJump},
	OpDevblockEnd:                     {Name: "DevblockEnd"},
	OpEvalLocalVariableCachedDebug:    {Name: "EvalLocalVariableCachedDebug", Operand: KindUInt8},
	OpEvalLocalVariableRefCachedDebug: {Name: "EvalLocalVariableRefCachedDebug", Operand: KindUInt8},
	OpLevelEvalFieldVariable:          {Name: "LevelEvalFieldVariable", Operand: KindVariableName},
	OpLevelEvalFieldVariableRef:       {Name: "LevelEvalFieldVariableRef", Operand: KindVariableName},
	OpSelfEvalFieldVariable:           {Name: "SelfEvalFieldVariable", Operand: KindVariableName},
	OpSelfEvalFieldVariableRef:        {Name: "SelfEvalFieldVariableRef", Operand: KindVariableName},
	OpGetClasses:                      {Name: "GetClasses"},
	OpGetClassesObject:                {Name: "GetClassesObject"},
	OpClassFunctionCall:               {Name: "ClassFunctionCall", Operand: KindCall, Category: CategoryCall},
	OpClassFunctionThreadCall:         {Name: "ClassFunctionThreadCall", Operand: KindCall, Category: CategoryCall},
	OpSuperEqual:                      {Name: "SuperEqual"},
	OpSuperNotEqual:                   {Name: "SuperNotEqual"},
	OpGetSignedByte:                   {Name: "GetSignedByte", Operand: KindInt8},
	OpGetUnsignedInteger:              {Name: "GetUnsignedInteger", Operand: KindUInt32},
}

func init() {
	for i := range opMetadata {
		opMetadata[i].Opcode = Opcode(i)
	}
}

// Metadata returns the static description of op.
func (op Opcode) Metadata() OpMetadata {
	if op >= opCount {
		return opMetadata[OpInvalid]
	}
	return opMetadata[op]
}

func (op Opcode) String() string {
	return op.Metadata().Name
}

// OpcodeTable maps opcode bytes to opcodes. Unlisted bytes are OpInvalid.
type OpcodeTable [256]Opcode

// Lookup returns the opcode for b.
func (t *OpcodeTable) Lookup(b byte) Opcode { return t[b] }

// Encode returns the byte value of op, if the table maps one.
func (t *OpcodeTable) Encode(op Opcode) (byte, bool) {
	for b, o := range t {
		if o == op && op != OpInvalid {
			return byte(b), true
		}
	}
	return 0, false
}

// blackOps3Opcodes is the Black Ops III opcode byte table.
var blackOps3Opcodes = OpcodeTable{
	0x00: OpEnd,
	0x01: OpReturn,
	0x02: OpGetUndefined,
	0x03: OpGetZero,
	0x04: OpGetByte,
	0x05: OpGetNegByte,
	0x06: OpGetUnsignedShort,
	0x07: OpGetNegUnsignedShort,
	0x08: OpGetInteger,
	0x09: OpGetFloat,
	0x0A: OpGetString,
	0x0B: OpGetIString,
	0x0C: OpGetVector,
	0x0D: OpGetLevelObject,
	0x0E: OpGetAnimObject,
	0x0F: OpGetSelf,
	0x10: OpGetLevel,
	0x11: OpGetGame,
	0x12: OpGetAnim,
	0x13: OpGetAnimation,
	0x14: OpGetGameRef,
	0x15: OpGetFunction,
	0x16: OpCreateLocalVariable,
	0x17: OpSafeCreateLocalVariables,
	0x18: OpRemoveLocalVariables,
	0x19: OpEvalLocalVariableCached,
	0x1A: OpEvalArray,
	0x1B: OpEvalLocalArrayRefCached,
	0x1C: OpEvalArrayRef,
	0x1D: OpClearArray,
	0x1E: OpGetEmptyArray,
	0x1F: OpGetSelfObject,
	0x20: OpEvalFieldVariable,
	0x21: OpEvalFieldVariableRef,
	0x22: OpClearFieldVariable,
	0x23: OpSetVariableField,
	0x24: OpSetLocalVariableCached,
	0x25: OpClearParams,
	0x26: OpCheckClearParams,
	0x27: OpEvalLocalVariableRefCached,
	0x28: OpEvalLocalVariableDefined,
	0x29: OpCallBuiltinFunction,
	0x2A: OpCallBuiltinMethod,
	0x2B: OpWait,
	0x2C: OpWaitTillFrameEnd,
	0x2D: OpPreScriptCall,
	0x2E: OpScriptFunctionCall,
	0x2F: OpScriptFunctionCallPointer,
	0x30: OpScriptMethodCall,
	0x31: OpScriptMethodCallPointer,
	0x32: OpScriptThreadCall,
	0x33: OpScriptThreadCallPointer,
	0x34: OpScriptMethodThreadCall,
	0x35: OpScriptMethodThreadCallPointer,
	0x36: OpDecTop,
	0x37: OpCastFieldObject,
	0x38: OpCastBool,
	0x39: OpBoolNot,
	0x3A: OpBoolComplement,
	0x3B: OpJumpOnFalse,
	0x3C: OpJumpOnTrue,
	0x3D: OpJumpOnFalseExpr,
	0x3E: OpJumpOnTrueExpr,
	0x3F: OpJump,
	0x40: OpJumpBack,
	0x41: OpInc,
	0x42: OpDec,
	0x43: OpBitOr,
	0x44: OpBitXor,
	0x45: OpBitAnd,
	0x46: OpEqual,
	0x47: OpNotEqual,
	0x48: OpLessThan,
	0x49: OpGreaterThan,
	0x4A: OpLessThanOrEqualTo,
	0x4B: OpGreaterThanOrEqualTo,
	0x4C: OpShiftLeft,
	0x4D: OpShiftRight,
	0x4E: OpPlus,
	0x4F: OpMinus,
	0x50: OpMultiply,
	0x51: OpDivide,
	0x52: OpModulus,
	0x53: OpSizeOf,
	0x54: OpWaitTillMatch,
	0x55: OpWaitTill,
	0x56: OpNotify,
	0x57: OpEndOn,
	0x58: OpVoidCodePos,
	0x59: OpSwitch,
	0x5A: OpEndSwitch,
	0x5B: OpVector,
	0x5C: OpGetHash,
	0x5D: OpRealWait,
	0x5E: OpVectorConstant,
	0x5F: OpIsDefined,
	0x60: OpVectorScale,
	0x61: OpAnglesToUp,
	0x62: OpAnglesToRight,
	0x63: OpAnglesToForward,
	0x64: OpAngleClamp180,
	0x65: OpVectorToAngles,
	0x66: OpAbs,
	0x67: OpGetTime,
	0x68: OpGetDvar,
	0x69: OpGetDvarInt,
	0x6A: OpGetDvarFloat,
	0x6B: OpGetDvarVector,
	0x6C: OpGetDvarColorRed,
	0x6D: OpGetDvarColorGreen,
	0x6E: OpGetDvarColorBlue,
	0x6F: OpGetDvarColorAlpha,
	0x70: OpFirstArrayKey,
	0x71: OpNextArrayKey,
	0x72: OpProfileStart,
	0x73: OpProfileStop,
	0x74: OpSafeDecTop,
	0x75: OpNop,
	0x76: OpAbort,
	0x77: OpObject,
	0x78: OpThreadObject,
	0x7A: OpDevblockBegin,
	0x7B: OpDevblockEnd,
	0x7C: OpEvalLocalVariableCachedDebug,
	0x7D: OpEvalLocalVariableRefCachedDebug,
	0x7E: OpLevelEvalFieldVariable,
	0x7F: OpLevelEvalFieldVariableRef,
	0x80: OpSelfEvalFieldVariable,
	0x81: OpSelfEvalFieldVariableRef,
	0x82: OpGetClasses,
	0x83: OpGetClassesObject,
	0x84: OpClassFunctionCall,
	0x85: OpClassFunctionThreadCall,
	0x86: OpSuperEqual,
	0x87: OpSuperNotEqual,
	0x88: OpGetSignedByte,
	0x89: OpGetUnsignedInteger,
}

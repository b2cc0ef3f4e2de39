// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package vk implements driver interfaces using the Vulkan API.
package vk

import (
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"

	"github.com/gviegas/vkframe/driver"
	"github.com/gviegas/vkframe/internal/log"
	"github.com/gviegas/vkframe/wsi"
)

const driverName = "vulkan"

// validationLayer is enabled when driver.Config.Validation
// is set.
const validationLayer = "VK_LAYER_KHRONOS_validation"

var logger = log.New("vk")

// Driver implements driver.Driver and driver.GPU.
type Driver struct {
	inst  vk.Instance
	ivers uint32
	dbg   vk.DebugReportCallback
	sf    *surface
	pdev  vk.PhysicalDevice
	dname string
	dvers uint32
	devs  []driver.DeviceInfo
	dev   vk.Device
	fams  driver.QueueFamilies
	gque  vk.Queue
	pque  vk.Queue
	pool  vk.CommandPool

	// qmu serializes access to gque and pque, which
	// may be the same queue.
	qmu sync.Mutex

	// Memory types of pdev, and used memory indexed by
	// heap.
	mtypes []memoryType
	mused  []int64

	// Limits of pdev.
	lim driver.Limits
}

func init() {
	driver.Register(&Driver{})
}

// initInstance initializes the Vulkan instance.
func (d *Driver) initInstance(cfg *driver.Config) error {
	name := cfg.AppName
	if name == "" {
		name = "vkframe"
	}
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   cstr(name),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        cstr("vkframe"),
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 0, 0),
	}
	exts := cfg.Window.InstanceExtensions()
	var layers []string
	if cfg.Validation {
		if !hasString(instanceLayers(), validationLayer) {
			return errors.Wrap(driver.ErrNoLayer, validationLayer)
		}
		layers = append(layers, validationLayer)
		exts = append(exts, vk.ExtDebugReportExtensionName)
	}
	avail := instanceExts()
	for _, e := range exts {
		if !hasString(avail, e) {
			return errors.Wrap(driver.ErrNoExtension, e)
		}
	}
	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: cstrs(exts),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     cstrs(layers),
	}
	var inst vk.Instance
	if err := checkResult(vk.CreateInstance(&info, nil, &inst)); err != nil {
		return errors.Wrap(err, "vk: vkCreateInstance")
	}
	if err := vk.InitInstance(inst); err != nil {
		vk.DestroyInstance(inst, nil)
		return errors.Wrap(err, "vk: InitInstance")
	}
	d.inst = inst
	d.ivers = appInfo.ApiVersion
	if cfg.Validation {
		return d.initDebug()
	}
	return nil
}

// initDebug installs a debug report callback that routes
// validation messages to the logger.
func (d *Driver) initDebug() error {
	info := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: debugReport,
	}
	if err := checkResult(vk.CreateDebugReportCallback(d.inst, &info, nil, &d.dbg)); err != nil {
		return errors.Wrap(err, "vk: vkCreateDebugReportCallback")
	}
	return nil
}

func debugReport(flags vk.DebugReportFlags, _ vk.DebugReportObjectType, _ uint64, _ uint64, code int32, prefix string, msg string, _ unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		logger.Errorf("[%s] code %d: %s", prefix, code, msg)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		logger.Warningf("[%s] code %d: %s", prefix, code, msg)
	default:
		logger.Debugf("[%s] code %d: %s", prefix, code, msg)
	}
	return vk.False
}

// initDevice selects a physical device and creates the
// logical device and its queues.
// The first suitable device in enumeration order is
// selected. Suitability requires graphics and present
// queue families, the swapchain extension and at least
// one surface format and present mode.
func (d *Driver) initDevice() error {
	var n uint32
	if err := checkResult(vk.EnumeratePhysicalDevices(d.inst, &n, nil)); err != nil {
		return err
	}
	if n == 0 {
		return driver.ErrNoDevice
	}
	devs := make([]vk.PhysicalDevice, n)
	if err := checkResult(vk.EnumeratePhysicalDevices(d.inst, &n, devs)); err != nil {
		return err
	}

	d.devs = make([]driver.DeviceInfo, len(devs))
	sel := -1
	for i, dev := range devs {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(dev, &props)
		props.Deref()
		info := &d.devs[i]
		info.Name = vk.ToString(props.DeviceName[:])
		info.Type = convDeviceType(props.DeviceType)
		info.API = [3]int{versionMajor(props.ApiVersion), versionMinor(props.ApiVersion), versionPatch(props.ApiVersion)}
		info.Memory = deviceLocalMemory(dev)
		fams, ok := d.queueFamilies(dev)
		if !ok {
			logger.Debugf("device %s: missing graphics/present queue", info.Name)
			continue
		}
		info.Families = fams
		if !hasString(deviceExts(dev), vk.KhrSwapchainExtensionName) {
			logger.Debugf("device %s: missing %s", info.Name, vk.KhrSwapchainExtensionName)
			continue
		}
		spt, err := supportOf(dev, d.sf.sf)
		if err != nil || len(spt.Formats) == 0 || len(spt.Modes) == 0 {
			logger.Debugf("device %s: inadequate surface support", info.Name)
			continue
		}
		info.Suitable = true
		if sel == -1 {
			sel = i
			props.Limits.Deref()
			d.pdev = dev
			d.dname = info.Name
			d.dvers = props.ApiVersion
			d.fams = fams
			d.lim = driver.Limits{
				MaxImage2D: int(props.Limits.MaxImageDimension2D),
				MaxAniso:   props.Limits.MaxSamplerAnisotropy,
			}
		}
	}
	if sel == -1 {
		return driver.ErrNoDevice
	}
	d.devs[sel].Selected = true
	logger.Noticef("Using device: %s", d.dname)

	var feat vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(d.pdev, &feat)
	feat.Deref()
	enabled := vk.PhysicalDeviceFeatures{}
	if feat.SamplerAnisotropy == vk.True {
		enabled.SamplerAnisotropy = vk.True
	} else {
		d.lim.MaxAniso = 0
	}

	uniq := d.fams.Unique()
	qinfos := make([]vk.DeviceQueueCreateInfo, len(uniq))
	for i, fam := range uniq {
		qinfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(fam),
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}
	}
	exts := []string{vk.KhrSwapchainExtensionName}
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(qinfos)),
		PQueueCreateInfos:       qinfos,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: cstrs(exts),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{enabled},
	}
	var dev vk.Device
	if err := checkResult(vk.CreateDevice(d.pdev, &info, nil, &dev)); err != nil {
		return errors.Wrap(err, "vk: vkCreateDevice")
	}
	d.dev = dev
	vk.GetDeviceQueue(d.dev, uint32(d.fams.Graphics), 0, &d.gque)
	vk.GetDeviceQueue(d.dev, uint32(d.fams.Present), 0, &d.pque)
	d.initMemory()
	return nil
}

// queueFamilies finds the graphics and present queue
// families of dev. A family that supports both is
// preferred.
func (d *Driver) queueFamilies(dev vk.PhysicalDevice) (driver.QueueFamilies, bool) {
	var n uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &n, nil)
	props := make([]vk.QueueFamilyProperties, n)
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &n, props)
	graph := make([]bool, n)
	pres := make([]bool, n)
	for i := range props {
		props[i].Deref()
		graph[i] = props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		var spt vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(dev, uint32(i), d.sf.sf, &spt)
		pres[i] = spt.B()
	}
	return pickFamilies(graph, pres)
}

// pickFamilies chooses graphics and present families
// given per-family support.
func pickFamilies(graph, pres []bool) (driver.QueueFamilies, bool) {
	q := driver.QueueFamilies{Graphics: -1, Present: -1}
	for i := range graph {
		if graph[i] && pres[i] {
			return driver.QueueFamilies{Graphics: i, Present: i}, true
		}
		if graph[i] && q.Graphics == -1 {
			q.Graphics = i
		}
		if pres[i] && q.Present == -1 {
			q.Present = i
		}
	}
	return q, q.Graphics != -1 && q.Present != -1
}

// initPool creates the command pool of the graphics
// queue family.
func (d *Driver) initPool() error {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: uint32(d.fams.Graphics),
	}
	return checkResult(vk.CreateCommandPool(d.dev, &info, nil, &d.pool))
}

// Open initializes the driver.
func (d *Driver) Open(cfg driver.Config) (gpu driver.GPU, err error) {
	if d.dev != nil {
		return d, nil
	}
	if cfg.Window == nil {
		return nil, errors.New("vk: Open requires a window")
	}
	if p := wsi.ProcAddr(); p != nil {
		vk.SetGetInstanceProcAddr(p)
	} else {
		return nil, driver.ErrNotInstalled
	}
	if err = vk.Init(); err != nil {
		return nil, errors.Wrap(driver.ErrNotInstalled, err.Error())
	}
	if err = d.initInstance(&cfg); err != nil {
		goto fail
	}
	if d.sf, err = d.newSurface(cfg.Window); err != nil {
		goto fail
	}
	if err = d.initDevice(); err != nil {
		goto fail
	}
	if err = d.initPool(); err != nil {
		goto fail
	}
	return d, nil
fail:
	d.Close()
	return nil, err
}

// Name returns the driver name.
func (d *Driver) Name() string { return driverName }

// Close deinitializes the driver.
func (d *Driver) Close() {
	if d == nil {
		return
	}
	if d.inst != nil {
		if d.dev != nil {
			vk.DeviceWaitIdle(d.dev)
			if d.pool != vk.CommandPool(vk.NullHandle) {
				vk.DestroyCommandPool(d.dev, d.pool, nil)
			}
			vk.DestroyDevice(d.dev, nil)
		}
		d.sf.Destroy()
		if d.dbg != vk.NullDebugReportCallback {
			vk.DestroyDebugReportCallback(d.inst, d.dbg, nil)
		}
		vk.DestroyInstance(d.inst, nil)
	}
	*d = Driver{}
}

// Driver returns the receiver (for driver.GPU conformance).
func (d *Driver) Driver() driver.Driver { return d }

// DeviceName returns the name of the selected device.
func (d *Driver) DeviceName() string { return d.dname }

// Devices describes the enumerated devices.
func (d *Driver) Devices() []driver.DeviceInfo {
	devs := make([]driver.DeviceInfo, len(d.devs))
	copy(devs, d.devs)
	return devs
}

// Families returns the queue families in use.
func (d *Driver) Families() driver.QueueFamilies { return d.fams }

// Limits returns the implementation limits.
func (d *Driver) Limits() driver.Limits { return d.lim }

// WaitIdle waits for the device to become idle.
func (d *Driver) WaitIdle() error {
	d.qmu.Lock()
	defer d.qmu.Unlock()
	return checkResult(vk.DeviceWaitIdle(d.dev))
}

// InstanceVersion returns the version requested for the
// VkInstance that the driver is using.
func (d *Driver) InstanceVersion() (major, minor, patch int) {
	return versionMajor(d.ivers), versionMinor(d.ivers), versionPatch(d.ivers)
}

// DeviceVersion returns the version of the VkDevice that
// the driver is using.
func (d *Driver) DeviceVersion() (major, minor, patch int) {
	return versionMajor(d.dvers), versionMinor(d.dvers), versionPatch(d.dvers)
}

// versionMajor extracts the major version number from v.
func versionMajor(v uint32) int { return int(v >> 22 & 0x7f) }

// versionMinor extracts the minor version number from v.
func versionMinor(v uint32) int { return int(v >> 12 & 0x3ff) }

// versionPatch extracts the patch version number from v.
func versionPatch(v uint32) int { return int(v & 0xfff) }

func convDeviceType(t vk.PhysicalDeviceType) driver.DeviceType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return driver.DevIntegrated
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return driver.DevDiscrete
	case vk.PhysicalDeviceTypeVirtualGpu:
		return driver.DevVirtual
	case vk.PhysicalDeviceTypeCpu:
		return driver.DevCPU
	}
	return driver.DevOther
}

// checkResult returns an error derived from a vk.Result value.
// If such value does not indicate an error, it returns nil instead.
func checkResult(res vk.Result) error {
	if res >= 0 {
		// Not an error: VK_ERROR_* values are all negative.
		return nil
	}
	switch res {
	case vk.ErrorOutOfHostMemory:
		return driver.ErrNoHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return driver.ErrNoDeviceMemory
	case vk.ErrorDeviceLost:
		return driver.ErrFatal
	case vk.ErrorLayerNotPresent:
		return driver.ErrNoLayer
	case vk.ErrorExtensionNotPresent:
		return driver.ErrNoExtension
	case vk.ErrorIncompatibleDriver:
		return errors.Wrap(driver.ErrNotInstalled, "vk: incompatible driver")
	case vk.ErrorSurfaceLost:
		return driver.ErrSurfaceLost
	}
	return errors.Wrapf(driver.ErrFatal, "vk: %v", vk.Error(res))
}

// cstr null-terminates s for the C API.
func cstr(s string) string {
	if len(s) > 0 && s[len(s)-1] == 0 {
		return s
	}
	return s + "\x00"
}

// cstrs calls cstr on every element of ss.
func cstrs(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	cs := make([]string, len(ss))
	for i := range ss {
		cs[i] = cstr(ss[i])
	}
	return cs
}

// hasString reports whether s is in list, ignoring null
// terminators.
func hasString(list []string, s string) bool {
	s = trimNull(s)
	for _, x := range list {
		if trimNull(x) == s {
			return true
		}
	}
	return false
}

func trimNull(s string) string {
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return s
}

// instanceLayers returns the names of available layers.
func instanceLayers() []string {
	var n uint32
	if vk.EnumerateInstanceLayerProperties(&n, nil) != vk.Success || n == 0 {
		return nil
	}
	props := make([]vk.LayerProperties, n)
	vk.EnumerateInstanceLayerProperties(&n, props)
	names := make([]string, 0, n)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].LayerName[:]))
	}
	return names
}

// instanceExts returns the names of available instance
// extensions.
func instanceExts() []string {
	var n uint32
	if vk.EnumerateInstanceExtensionProperties("", &n, nil) != vk.Success || n == 0 {
		return nil
	}
	props := make([]vk.ExtensionProperties, n)
	vk.EnumerateInstanceExtensionProperties("", &n, props)
	names := make([]string, 0, n)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names
}

// deviceExts returns the names of extensions supported
// by dev.
func deviceExts(dev vk.PhysicalDevice) []string {
	var n uint32
	if vk.EnumerateDeviceExtensionProperties(dev, "", &n, nil) != vk.Success || n == 0 {
		return nil
	}
	props := make([]vk.ExtensionProperties, n)
	vk.EnumerateDeviceExtensionProperties(dev, "", &n, props)
	names := make([]string, 0, n)
	for i := range props {
		props[i].Deref()
		names = append(names, vk.ToString(props[i].ExtensionName[:]))
	}
	return names
}
